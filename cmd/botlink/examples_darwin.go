//go:build darwin

package main

const (
	exampleDeviceAddress = "01234567-89AB-CDEF-0123-456789ABCDEF"
	deviceAddressNote    = "Robot address format: 128-bit UUID assigned by macOS, with or without dashes\n  Use 'botlink scan' to discover robots"
)
