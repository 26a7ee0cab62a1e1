/*
Command polaralign computes the polar axis error of an equatorial mount from
three plate solved images.

Contents

  Program overview
  Command line usage
  File formats
  Algorithm outline


Program overview

The mount is rotated about its right ascension axis between three exposures.
Each exposure is plate solved, giving the sky coordinates of the image
center.  The three pointing directions lie on a small circle around the
mount's axis, so the normal of the plane through them is the axis.  The
difference between the axis and the celestial pole, in altitude and azimuth,
is the alignment error.

Input is a run file, a stream of YAML documents, one per alignment run.
Output is the altitude, azimuth and total error of each run in arc minutes,
with the direction to move each adjuster.  A run may also record a live
sequence, plate solves taken while the operator turns the adjusters.  The
error is then followed solve by solve until it is within tolerance.

Sample run:

  polaralign version 0.3
  Run          Alt′      Az′   Total′  Adjust
  6f1c04e2    18.00    30.00    34.99  move down, move left/west
    live-1    13.50    22.50    26.24  move down, move left/west
    live-2     9.00    15.00    17.49  move down, move left/west
    live-3     4.50     7.50     8.75  move down, move left/west
    live-4     0.00     0.00     0.00
             within tolerance

Positive altitude error means the axis points above the pole.  Positive
azimuth error means the axis points east of the pole in the north, west of
it in the south.

The companion command pasim writes run files for a simulated mount with a
chosen error.


Command line usage

  Usage: polaralign [options] <runfile>  evaluate alignment runs in file
         polaralign [options] -          evaluate alignment runs from stdin
         polaralign -h                   display help and quick reference
         polaralign -v                   display version and copyright

  Options:
       -c <config-file>
       -log <update-log-file>
       -loglevel <debug|info|warn|error>

Runs are evaluated concurrently and printed in the order read.  Warnings go
to stderr.  With -log, each error estimate, initial and live, is appended
to the named file with the run id and the observer.


File formats

Run file.  See package internal/runfile for the fields.  Angles are in
degrees.  Plate solve times are RFC 3339.  Coordinates are J2000 unless a
solve gives epoch JNOW.  Weather is optional; without it refraction is
ignored.

Config file.  Polaralign reads polaralign.config in the current directory
if it exists, or the file named with -c.  Lines are keywords, one per line.
Blank lines and lines starting with # are ignored.

  headings      print version and column headings (default)
  noheadings    omit them
  refractpole   compare the axis to the refracted pole
  truepole      compare the axis to the true pole (default)
  live          follow live sequences (default)
  nolive        report only the three point estimate
  tolerance = <arc minutes>    live sequence stops within, default 1
  minspread = <degrees>        rotation and position angle spread below
                               which a result is low confidence, default 5
  distance = <degrees>         warn if samples are closer in RA, default 10
  wavelength = <micron>        default .55
  loglevel = <level>           debug, info, warn (default) or error


Algorithm outline

1.  Each plate solve is converted to the horizontal coordinates of the
observer at the time of the exposure.  Precession takes J2000 coordinates to
the equinox of date.  With weather, the altitude is raised by refraction to
where the telescope physically pointed.

2.  Pointing directions become unit vectors in a frame with x north, y west
and z up.  The cross product of the differences of the three vectors is the
normal of their plane.  It is oriented toward the visible pole.

3.  The normal as altitude and azimuth is compared to the pole, the
observer's latitude, or with refractpole the refracted latitude.

4.  For the live sequence, the third image is the reference frame.  The
adjuster moves that would correct the error carry the frame center to a
destination.  The start, the destination and the two single axis
destinations are projected into each new image.  The progress of the image
center toward the destination, decomposed along the two adjuster
directions, gives the remaining error.  When an image has drifted, the
reference star is found again among the detected stars.

-------------
Public domain.
*/
package main
