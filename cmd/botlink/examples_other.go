//go:build !darwin

package main

const (
	exampleDeviceAddress = "00:11:22:33:44:55"
	deviceAddressNote    = "Robot address format: MAC address, e.g. 00:11:22:33:44:55\n  Use 'botlink scan' to discover robots"
)
