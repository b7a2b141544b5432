package domain

// Hotel is one candidate property from an availability search. ID is the
// opaque string identity; HID is the numeric key content and reviews are
// joined on.
type Hotel struct {
	ID    string      `json:"id"`
	HID   int64       `json:"hid"`
	Rates []RateOffer `json:"rates"`
}

// RateOffer is one bookable room/meal/cancellation combination. MatchHash is
// unique within a hotel's offer list, not globally.
type RateOffer struct {
	MatchHash      string         `json:"match_hash"`
	RoomName       string         `json:"room_name"`
	Meal           string         `json:"meal"`
	MealData       *MealData      `json:"meal_data,omitempty"`
	DailyPrices    []string       `json:"daily_prices"`
	PaymentOptions PaymentOptions `json:"payment_options"`
	RoomExt        *RoomExt       `json:"rg_ext,omitempty"`
	Amenities      []string       `json:"amenities_data,omitempty"`
	SerpFilters    []string       `json:"serp_filters,omitempty"`
}

type MealData struct {
	Value        string `json:"value"`
	HasBreakfast bool   `json:"has_breakfast"`
}

type PaymentOptions struct {
	PaymentTypes []PaymentType `json:"payment_types"`
}

// PaymentType carries the displayed price. Amounts arrive as strings and may
// be empty or non-numeric; parsing is the caller's problem.
type PaymentType struct {
	Type                  string                 `json:"type"`
	Amount                string                 `json:"amount"`
	ShowAmount            string                 `json:"show_amount"`
	CurrencyCode          string                 `json:"currency_code"`
	ShowCurrencyCode      string                 `json:"show_currency_code"`
	CancellationPenalties *CancellationPenalties `json:"cancellation_penalties,omitempty"`
}

type CancellationPenalties struct {
	FreeCancellationBefore *string `json:"free_cancellation_before,omitempty"`
}

type RoomExt struct {
	Capacity int `json:"capacity"`
	Bedrooms int `json:"bedrooms"`
	Quality  int `json:"quality"`
	Bathroom int `json:"bathroom"`
	Bedding  int `json:"bedding"`
}

// Content is the descriptive payload for a hotel, fetched separately from
// availability and joined on HID.
type Content struct {
	ID            string         `json:"id"`
	HID           int64          `json:"hid"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	StarRating    int            `json:"star_rating"`
	Kind          string         `json:"kind"`
	AmenityGroups []AmenityGroup `json:"amenity_groups,omitempty"`
	Description   []Paragraph    `json:"description_struct,omitempty"`
	Facts         *HotelFacts    `json:"facts,omitempty"`
	SerpFilters   []string       `json:"serp_filters,omitempty"`
	Region        *RegionInfo    `json:"region,omitempty"`
}

type AmenityGroup struct {
	GroupName string   `json:"group_name"`
	Amenities []string `json:"amenities"`
}

type Paragraph struct {
	Title      string   `json:"title,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

type HotelFacts struct {
	FloorsNumber  int `json:"floors_number"`
	RoomsNumber   int `json:"rooms_number"`
	YearBuilt     int `json:"year_built"`
	YearRenovated int `json:"year_renovated"`
}

type RegionInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	CountryCode string `json:"country_code,omitempty"`
}

// Region is an autocomplete result ("City", "Country", "Airport", ...).
type Region struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	CountryCode string `json:"country_code"`
}

// GuestRoom is one room's guest configuration. Children holds ages.
type GuestRoom struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children,omitempty"`
}

// CombinedHotel joins a search result with its content and aggregated
// reviews. Content is nil when the content fetch skipped this hotel.
type CombinedHotel struct {
	Hotel
	Content *Content          `json:"content,omitempty"`
	Reviews AggregatedReviews `json:"reviews"`
}

// StarRating returns the content star rating, 0 when content is absent.
func (c CombinedHotel) StarRating() int {
	if c.Content == nil {
		return 0
	}
	return c.Content.StarRating
}

// Kind returns the property kind, "Unspecified" when content is absent.
func (c CombinedHotel) Kind() string {
	if c.Content == nil || c.Content.Kind == "" {
		return "Unspecified"
	}
	return c.Content.Kind
}

// OwnsRateHash reports whether hash names one of this hotel's own offers.
func (h Hotel) OwnsRateHash(hash string) bool {
	for _, r := range h.Rates {
		if r.MatchHash == hash {
			return true
		}
	}
	return false
}

// ScoredHotel is the terminal per-request artifact: a combined hotel plus the
// LLM verdict. SelectedRateHash, when non-nil, always resolves to one of the
// hotel's own offers.
type ScoredHotel struct {
	CombinedHotel
	Score            int      `json:"score"`
	TopReasons       []string `json:"top_reasons"`
	ScorePenalties   []string `json:"score_penalties"`
	SelectedRateHash *string  `json:"selected_rate_hash"`
	BookingURL       string   `json:"booking_url,omitempty"`
}
