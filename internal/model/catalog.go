package model

import "strings"

// ProductCode is a firmware variant of a device. DownloadRefs are message ids
// in the firmware channel; an empty list means the firmware is not available yet.
type ProductCode struct {
	Code         string
	DownloadRefs []int
}

// Available reports whether the code has at least one download reference.
func (p ProductCode) Available() bool {
	return len(p.DownloadRefs) > 0
}

// Device is a catalog entry keyed by product type.
type Device struct {
	ProductType  string
	Codes        []ProductCode
	EmergencyRef *int
}

// Code finds a product code of the device.
func (d Device) Code(code string) (ProductCode, bool) {
	code = NormalizeKey(code)
	for _, pc := range d.Codes {
		if pc.Code == code {
			return pc, true
		}
	}
	return ProductCode{}, false
}

// AvailableCodes lists codes that have download references, in catalog order.
func (d Device) AvailableCodes() []string {
	var out []string
	for _, pc := range d.Codes {
		if pc.Available() {
			out = append(out, pc.Code)
		}
	}
	return out
}

// Catalog is the ordered product type list served by the bot.
type Catalog []Device

// Device finds a device by product type.
func (c Catalog) Device(productType string) (Device, bool) {
	productType = NormalizeKey(productType)
	for _, d := range c {
		if d.ProductType == productType {
			return d, true
		}
	}
	return Device{}, false
}

// DownloadableTypes lists product types with at least one available code.
func (c Catalog) DownloadableTypes() []string {
	var out []string
	for _, d := range c {
		if len(d.AvailableCodes()) > 0 {
			out = append(out, d.ProductType)
		}
	}
	return out
}

// EmergencyTypes lists product types that have emergency flash files.
func (c Catalog) EmergencyTypes() []string {
	var out []string
	for _, d := range c {
		if d.EmergencyRef != nil {
			out = append(out, d.ProductType)
		}
	}
	return out
}

// NormalizeKey trims and uppercases user supplied product types and codes.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
