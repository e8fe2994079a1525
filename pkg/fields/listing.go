package fields

import (
	"fmt"
	"strings"
)

// ListingBudget is the character budget for a rendered track listing.
// Lines that would push the listing past it are dropped and summarized
// by a trailing "...and N more".
const ListingBudget = 1000

// TruncateListing joins pre-rendered listing lines up to the character
// budget. total is the declared number of entries in the collection;
// whenever fewer lines make it into the output, a "...and N more" suffix
// reports the omission. Each line is budgeted with its trailing newline.
func TruncateListing(lines []string, total int) string {
	var b strings.Builder
	used := 0
	included := 0

	for _, line := range lines {
		cost := len(line) + 1
		if used+cost > ListingBudget {
			break
		}
		if included > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		used += cost
		included++
	}

	if included != total {
		fmt.Fprintf(&b, "\n...and %d more", total-included)
	}
	return b.String()
}
