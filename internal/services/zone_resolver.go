package services

// FindZone returns the first zone, in the order supplied, covering the destination.
// A zone covers the destination when one of its countries has the destination country code
// and either lists no provinces or lists the destination province code.
// The boolean is false when no zone matches.
func FindZone(zones []ShippingZone, address Address) (ShippingZone, bool) {
	for _, zone := range zones {
		if zoneCovers(zone, address.CountryCode, address.ProvinceCode) {
			return zone, true
		}
	}
	return ShippingZone{}, false
}

func zoneCovers(zone ShippingZone, countryCode, provinceCode string) bool {
	if countryCode == "" {
		return false
	}
	for _, country := range zone.Countries {
		if country.Code != countryCode {
			continue
		}
		if len(country.ProvinceCodes) == 0 {
			return true
		}
		for _, code := range country.ProvinceCodes {
			if code == provinceCode {
				return true
			}
		}
	}
	return false
}
