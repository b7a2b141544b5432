package search

import (
	"fmt"
	"strings"

	"hotelscout/internal/domain"
)

// ISO country code to booking-site URL path segment.
var countrySlugs = map[string]string{
	"DE": "germany", "RU": "russia", "FR": "france", "IT": "italy", "ES": "spain",
	"GB": "united_kingdom", "US": "usa", "CN": "china", "JP": "japan", "TH": "thailand",
	"AE": "uae", "TR": "turkey", "GR": "greece", "AT": "austria", "CH": "switzerland",
	"NL": "netherlands", "BE": "belgium", "PT": "portugal", "CZ": "czech_republic",
	"PL": "poland", "HU": "hungary", "SE": "sweden", "NO": "norway", "DK": "denmark",
	"FI": "finland", "IE": "ireland", "AU": "australia", "NZ": "new_zealand",
}

// BookingURL builds the deep link for one hotel result. Checkin and checkout
// are YYYY-MM-DD; the target site wants DD.MM.YYYY. City and country come
// from the hotel's content region when present, falling back to generic
// slugs so the link still resolves through the site's redirect.
func BookingURL(h domain.CombinedHotel, checkin, checkout string, guests []domain.GuestRoom, regionID int64) string {
	countrySlug, citySlug := "russia", "moscow"
	if h.Content != nil && h.Content.Region != nil {
		if s, ok := countrySlugs[h.Content.Region.CountryCode]; ok {
			countrySlug = s
		} else if cc := h.Content.Region.CountryCode; cc != "" {
			countrySlug = strings.ToLower(cc)
		}
		if name := h.Content.Region.Name; name != "" {
			citySlug = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
		}
	}

	total := 0
	for _, g := range guests {
		total += g.Adults + len(g.Children)
	}

	return fmt.Sprintf("https://ostrovok.ru/hotel/%s/%s/mid%d/%s/?dates=%s-%s&guests=%d&q=%d",
		countrySlug, citySlug, h.HID, h.ID, flipDate(checkin), flipDate(checkout), total, regionID)
}

// flipDate converts YYYY-MM-DD to DD.MM.YYYY, returning the input unchanged
// when it does not look like a date.
func flipDate(d string) string {
	parts := strings.SplitN(d, "-", 3)
	if len(parts) != 3 {
		return d
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}
