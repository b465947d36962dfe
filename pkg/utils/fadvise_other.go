// pkg/utils/fadvise_other.go

//go:build !linux

package utils

import "os"

func AdviseSequential(f *os.File) {}
