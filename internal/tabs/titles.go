package tabs

import "strings"

// routeTitles maps known dashboard routes to their tab titles.
var routeTitles = map[string]string{
	"/dashboard":     "Dashboard",
	"/analytics":     "Analytics",
	"/users":         "Users",
	"/roles":         "Roles",
	"/calendar":      "Calendar",
	"/documents":     "Documents",
	"/files":         "Files",
	"/notifications": "Notifications",
	"/messages":      "Messages",
	"/settings":      "Settings",
	"/profile":       "Profile",
}

// TitleFor returns the title for a route, deriving one from the last path
// segment when the route is not in the table.
func TitleFor(path string) string {
	if title, ok := routeTitles[path]; ok {
		return title
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "Home"
	}
	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]
	words := strings.Split(strings.ReplaceAll(last, "-", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
