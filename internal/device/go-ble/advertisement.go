package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/botlink/internal/device"
)

// BLEAdvertisement adapts ble.Advertisement to device.Advertisement.
type BLEAdvertisement struct {
	adv ble.Advertisement
}

// NewBLEAdvertisement wraps adv.
func NewBLEAdvertisement(adv ble.Advertisement) device.Advertisement {
	return &BLEAdvertisement{adv: adv}
}

func (a *BLEAdvertisement) LocalName() string        { return a.adv.LocalName() }
func (a *BLEAdvertisement) ManufacturerData() []byte { return a.adv.ManufacturerData() }
func (a *BLEAdvertisement) Connectable() bool        { return a.adv.Connectable() }
func (a *BLEAdvertisement) RSSI() int                { return a.adv.RSSI() }

func (a *BLEAdvertisement) Addr() string {
	if a.adv.Addr() == nil {
		return ""
	}
	return a.adv.Addr().String()
}

// Services merges complete and overflow service lists.
func (a *BLEAdvertisement) Services() []string {
	svcs := a.adv.Services()
	overflow := a.adv.OverflowService()
	result := make([]string, 0, len(svcs)+len(overflow))
	for _, s := range svcs {
		result = append(result, s.String())
	}
	for _, s := range overflow {
		result = append(result, s.String())
	}
	return result
}
