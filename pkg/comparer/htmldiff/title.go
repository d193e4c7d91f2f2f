package htmldiff

// MakeTitle abbreviates pathname to fit width, keeping the tail of the path
// since the basename carries the most information. An empty pathname renders
// as "None" and width <= 0 disables abbreviation.
func MakeTitle(pathname string, width int) string {
	if pathname == "" {
		return "None"
	}
	if width <= 0 {
		return pathname
	}
	r := []rune(pathname)
	if len(r) <= width {
		return pathname
	}
	if width > 3 {
		return "..." + string(r[len(r)-(width-3):])
	}
	return string(r[len(r)-width:])
}
