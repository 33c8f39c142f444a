// Package device defines the BLE transport contract the robot sessions
// consume: advertisement reports, a scanner, and a Link bound to one
// rx/tx characteristic pair. The go-ble backed implementation lives in
// the go-ble subpackage.
package device
