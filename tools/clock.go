package tools

import (
	"context"
	"fmt"
	"time"
)

// taipei avoids a tzdata lookup for the default zone.
var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// GetCurrentTimeInput selects how the run's clock is reported.
type GetCurrentTimeInput struct {
	// Format follows Go's reference time layout.
	Format string `json:"format,omitempty" jsonschema_description:"Time format string according to Go's time formatting conventions, default format is : 2006-01-02T15:04:05Z07:00"`

	// Location is an IANA zone name.
	Location string `json:"location,omitempty" jsonschema_description:"IANA time zone identifier, default Asia/Taipei"`
}

type GetCurrentTimeOutput struct {
	CurrentTime string `json:"currentTime" jsonschema_description:"Current time formatted as per input parameters"`
	Weekday     string `json:"weekday"`
	Season      string `json:"season"`
}

// GetCurrentTime reports the run's clock so relative dates in a question
// ("last week", "this month") can be resolved against the data.
func GetCurrentTime(ctx context.Context, deps *Deps, input GetCurrentTimeInput) (GetCurrentTimeOutput, error) {
	format := input.Format
	if format == "" {
		format = time.RFC3339
	}
	loc := taipei
	if input.Location != "" {
		var err error
		if loc, err = time.LoadLocation(input.Location); err != nil {
			return GetCurrentTimeOutput{}, fmt.Errorf("invalid location: %w", err)
		}
	}
	now := deps.now().In(loc)
	season, _ := GetSeasonalThemes(ctx, deps, NoArgs{})
	return GetCurrentTimeOutput{
		CurrentTime: now.Format(format),
		Weekday:     now.Weekday().String(),
		Season:      season.Season,
	}, nil
}
