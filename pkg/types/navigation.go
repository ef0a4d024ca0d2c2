package types

// NavigationItem is a sidebar entry served to the dashboard shell.
type NavigationItem struct {
	Name     string           `json:"name"`
	Href     string           `json:"href"`
	Icon     string           `json:"icon,omitempty"`
	Badge    string           `json:"badge,omitempty"`
	Children []NavigationItem `json:"children,omitempty"`
}
