// Public domain.

package main

import "github.com/soniakeys/polaralign/internal/paprog"

func main() {
	paprog.Main()
}
