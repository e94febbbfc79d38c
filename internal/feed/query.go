package feed

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// submittedDateLayout is the minute-precision timestamp arXiv accepts in
// submittedDate ranges.
const submittedDateLayout = "200601021504"

// BuildRangeQuery returns the search expression for papers in category
// submitted between from and to. Both bounds are rendered in UTC with the
// seconds dropped; from <= to is the caller's responsibility.
func BuildRangeQuery(category string, from, to time.Time) string {
	return fmt.Sprintf("cat:%s AND submittedDate:[%s TO %s]",
		category,
		from.UTC().Format(submittedDateLayout),
		to.UTC().Format(submittedDateLayout),
	)
}

// RangeParams wraps a search expression in the parameters used for a
// newest-first search.
func RangeParams(query string, maxResults int) url.Values {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", strconv.Itoa(maxResults))
	return params
}

// IDParams returns the parameters for a single-id lookup.
func IDParams(id string) url.Values {
	params := url.Values{}
	params.Set("id_list", id)
	return params
}
