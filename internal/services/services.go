package services

// PlaylistInfo is a provider playlist's metadata, without its membership.
type PlaylistInfo struct {
	ID          string
	Title       string
	Description string
	ItemCount   int
}

// ItemPage is one page of a playlist's membership.
//
// NextPageToken is empty on the final page.
type ItemPage struct {
	TrackIDs      []string
	NextPageToken string
}

// TrackDetail is a provider track's normalized metadata.
//
// ArtistLabel is the provider's channel/uploader label with provider-specific
// decoration already stripped; empty when the provider reports none.
// DurationMS is 0 when the provider's duration was missing, unparseable, or
// non-positive.
type TrackDetail struct {
	ID          string
	Title       string
	ArtistLabel string
	DurationMS  int
	ISRC        string
}
