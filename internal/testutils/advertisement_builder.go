//go:build test

package testutils

import (
	"github.com/go-ble/ble"
	"github.com/srg/botlink/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked BLE advertisements for scan tests.
type AdvertisementBuilder struct {
	adv mocks.MockAdvertisement
}

// NewAdvertisementBuilder starts from a connectable advertisement with RSSI -60.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{adv: mocks.MockAdvertisement{Rssi: -60, CanConnect: true}}
}

func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.Name = name
	return b
}

func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.Address = addr
	return b
}

func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.Rssi = rssi
	return b
}

// WithServices adds service UUIDs in short ("2261") or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	for _, u := range uuids {
		b.adv.ServiceIDs = append(b.adv.ServiceIDs, ble.MustParse(u))
	}
	return b
}

func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	b.adv.ManufData = data
	return b
}

func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.adv.CanConnect = c
	return b
}

// Build returns a copy, so the builder can be reused for variants.
func (b *AdvertisementBuilder) Build() ble.Advertisement {
	adv := b.adv
	adv.ServiceIDs = append([]ble.UUID(nil), b.adv.ServiceIDs...)
	return &adv
}
