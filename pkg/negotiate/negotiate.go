// Package negotiate picks the response body definition that best matches
// what an origin actually returned.
package negotiate

import (
	"sort"
	"strconv"
	"strings"

	"mercator-hq/apigate/pkg/schema"
)

// Match scores.
const (
	ScoreExact    = 100
	ScoreSubtype  = 10
	ScoreWildcard = 1
	ScoreNone     = 0
)

// Score rates how well a media-type range matches an actual Content-Type.
func Score(mediaRange, contentType string) int {
	mediaRange = strings.ToLower(strings.TrimSpace(mediaRange))
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	if mediaRange == "" {
		return ScoreNone
	}
	if mediaRange == "*/*" {
		return ScoreWildcard
	}
	if strings.HasSuffix(mediaRange, "/*") {
		if strings.HasPrefix(contentType, strings.TrimSuffix(mediaRange, "*")) {
			return ScoreSubtype
		}
		return ScoreNone
	}
	if strings.HasPrefix(contentType, mediaRange) {
		return ScoreExact
	}
	return ScoreNone
}

// SelectBestContent returns the candidate whose media-type range best
// matches contentType. Ties keep list order. It returns false when
// contentType is empty or nothing matches.
func SelectBestContent(candidates []schema.ResponseContent, contentType string) (*schema.ResponseContent, bool) {
	if contentType == "" || len(candidates) == 0 {
		return nil, false
	}

	type scored struct {
		index int
		score int
	}

	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{index: i, score: Score(c.MediaTypeRange, contentType)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if ranked[0].score == ScoreNone {
		return nil, false
	}
	return &candidates[ranked[0].index], true
}

// SelectResponseBody finds the response body definition for a status code:
// an exact match first, then the status class ("2XX"), then "default".
func SelectResponseBody(bodies []schema.ResponseBody, status int) (*schema.ResponseBody, bool) {
	code := strconv.Itoa(status)
	class := code[:1] + "XX"

	for _, want := range []string{code, class, "default"} {
		for i := range bodies {
			if strings.EqualFold(bodies[i].StatusCode, want) {
				return &bodies[i], true
			}
		}
	}
	return nil, false
}
