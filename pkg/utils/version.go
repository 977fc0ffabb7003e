// Package utils holds small helpers and build metadata shared by commands.
package utils

var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
