package scrape

// Detect returns the subset of fresh items whose link is not in the known
// set. Membership is by link only: a title change on an existing link is
// not a new item, which is what makes re-scraping unchanged content
// idempotent.
func Detect(fresh []Item, known map[string]struct{}) []Item {
	var delta []Item
	for _, item := range fresh {
		if _, ok := known[item.Link]; !ok {
			delta = append(delta, item)
		}
	}
	return delta
}
