package acoustid

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-split/identify"
)

type artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type releaseGroup struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	SecondaryTypes []string `json:"secondarytypes"`
	Artists        []artist `json:"artists"`
}

type recording struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Duration      float64        `json:"duration"`
	Artists       []artist       `json:"artists"`
	ReleaseGroups []releaseGroup `json:"releasegroups"`
}

type result struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []recording `json:"recordings"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is the body of both /v2/lookup and /v2/submit.
type response struct {
	Status  string    `json:"status"`
	Error   *apiError `json:"error"`
	Results *[]result `json:"results"`
}

func (r *response) err() error {
	if r.Status == "ok" {
		return nil
	}
	if r.Error != nil {
		return fmt.Errorf("%w: acoustid error %d: %s", identify.ErrWebService, r.Error.Code, r.Error.Message)
	}
	return fmt.Errorf("%w: acoustid status %q", identify.ErrWebService, r.Status)
}

// parseLookup turns a lookup response into metadata options, one per
// release group of every distinct recording.
func parseLookup(resp *response) ([]identify.MetadataOption, error) {
	if err := resp.err(); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: acoustid response has no results", identify.ErrWebService)
	}

	recordings := mergeRecordings(extractRecordings(*resp.Results))
	return optionsForRecordings(recordings), nil
}

// extractRecordings flattens the recordings of all results. Results without
// recordings and recordings without a title are skipped.
func extractRecordings(results []result) []recording {
	out := []recording{}
	for _, r := range results {
		for _, rec := range r.Recordings {
			if rec.Title == "" {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// mergeRecordings collapses recordings with the same title and artists into
// the first of them, collecting every release group once by id.
func mergeRecordings(recordings []recording) []recording {
	merged := []recording{}
	for _, rec := range recordings {
		idx := slices.IndexFunc(merged, func(m recording) bool {
			return m.Title == rec.Title && slices.Equal(m.Artists, rec.Artists)
		})
		if idx < 0 {
			rec.ReleaseGroups = slices.Clone(rec.ReleaseGroups)
			merged = append(merged, rec)
			continue
		}
		for _, rg := range rec.ReleaseGroups {
			known := slices.ContainsFunc(merged[idx].ReleaseGroups, func(other releaseGroup) bool {
				return other.ID == rg.ID
			})
			if !known {
				merged[idx].ReleaseGroups = append(merged[idx].ReleaseGroups, rg)
			}
		}
	}
	return merged
}

// filterCompilations drops release groups with secondary types such as
// compilations and soundtracks, unless nothing else is left.
func filterCompilations(groups []releaseGroup) []releaseGroup {
	albums := []releaseGroup{}
	for _, rg := range groups {
		if len(rg.SecondaryTypes) == 0 {
			albums = append(albums, rg)
		}
	}
	if len(albums) == 0 {
		return groups
	}
	return albums
}

func optionsForRecordings(recordings []recording) []identify.MetadataOption {
	options := []identify.MetadataOption{}
	for _, rec := range recordings {
		groups := filterCompilations(rec.ReleaseGroups)
		if len(groups) == 0 {
			options = append(options, identify.MetadataOption{
				Title:  rec.Title,
				Artist: joinArtistNames(rec.Artists),
			})
			continue
		}
		for _, rg := range groups {
			options = append(options, optionForReleaseGroup(rec, rg))
		}
	}
	return options
}

func optionForReleaseGroup(rec recording, rg releaseGroup) identify.MetadataOption {
	return identify.MetadataOption{
		Title:       rec.Title,
		Artist:      joinArtistNames(rec.Artists),
		Album:       rg.Title,
		AlbumArtist: joinArtistNames(rg.Artists),
	}
}

func joinArtistNames(artists []artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, "; ")
}
