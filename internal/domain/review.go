package domain

// RawReview is one guest review as fetched. Rating 0 means "unrated".
// Reviews are append-only; nothing mutates them after fetch.
type RawReview struct {
	ID          int64           `json:"id"`
	Rating      float64         `json:"rating"`
	ReviewPlus  *string         `json:"review_plus,omitempty"`
	ReviewMinus *string         `json:"review_minus,omitempty"`
	Created     string          `json:"created"`
	Author      string          `json:"author,omitempty"`
	Detailed    *DetailedReview `json:"detailed_review,omitempty"`
	Language    string          `json:"language,omitempty"`
}

// DetailedReview holds per-category sub-ratings. Numeric categories use 0 for
// "not rated"; wifi and hygiene are qualitative strings ("perfect".."bad").
type DetailedReview struct {
	Cleanness float64 `json:"cleanness"`
	Location  float64 `json:"location"`
	Price     float64 `json:"price"`
	Services  float64 `json:"services"`
	Room      float64 `json:"room"`
	Meal      float64 `json:"meal"`
	WiFi      string  `json:"wifi"`
	Hygiene   string  `json:"hygiene"`
}

// DetailedAverages are per-category means over the reviews that reported that
// category. A nil field means no review reported it.
type DetailedAverages struct {
	Cleanness *float64 `json:"cleanness"`
	Location  *float64 `json:"location"`
	Price     *float64 `json:"price"`
	Services  *float64 `json:"services"`
	Room      *float64 `json:"room"`
	Meal      *float64 `json:"meal"`
	WiFi      *float64 `json:"wifi"`
	Hygiene   *float64 `json:"hygiene"`
}

// AggregatedReviews is derived per-hotel review data. AvgRating and Detailed
// are computed over the complete unfiltered set; Sample is the age-filtered,
// recency-sorted, capped subset. Trimming the sample never changes the
// published averages.
type AggregatedReviews struct {
	Sample        []RawReview      `json:"reviews"`
	TotalReviews  int              `json:"total_reviews"`
	FilteredByAge int              `json:"filtered_by_age"`
	AvgRating     *float64         `json:"avg_rating"`
	Detailed      DetailedAverages `json:"detailed_averages"`
}

// HotelReviews is the fetch envelope: one hotel's raw review list.
type HotelReviews struct {
	ID      string      `json:"id"`
	HID     int64       `json:"hid"`
	Reviews []RawReview `json:"reviews"`
}
