package portal

// ShareLevel is the visibility scope applied to a published service.
type ShareLevel string

const (
	ShareLevelPrivate ShareLevel = "private"
	ShareLevelOrg     ShareLevel = "org"
	ShareLevelPublic  ShareLevel = "public"
)

// ParseShareLevel maps a configured share level onto a known value.
// Anything unrecognised degrades to private, matching the portal's most
// restrictive default.
func ParseShareLevel(s string) ShareLevel {
	switch ShareLevel(s) {
	case ShareLevelOrg:
		return ShareLevelOrg
	case ShareLevelPublic:
		return ShareLevelPublic
	default:
		return ShareLevelPrivate
	}
}

// Item represents a content item as known to the portal. Published feature
// services, shapefiles and other datasets all surface through this shape.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
	Owner string `json:"owner"`
}

// SearchQuery narrows a content search. Empty fields are omitted from the
// generated query string.
type SearchQuery struct {
	Title    string
	Owner    string
	ItemType string
	Max      int
}

// ItemUpdate carries the metadata applied to an item after publishing.
type ItemUpdate struct {
	Tags        string
	Description string
	Categories  string
}

// ServiceDefinition carries the service-level settings applied through the
// admin endpoint of a feature service.
type ServiceDefinition struct {
	Capabilities         string `json:"capabilities"`
	MaxRecordCount       int    `json:"maxRecordCount"`
	AllowGeometryUpdates bool   `json:"allowGeometryUpdates"`
}

// DefaultServiceDefinition returns the settings applied to every service
// published by this tool.
func DefaultServiceDefinition() ServiceDefinition {
	return ServiceDefinition{
		Capabilities:         "Query, Editing, Extract",
		MaxRecordCount:       5000,
		AllowGeometryUpdates: true,
	}
}

// User represents a portal user account.
type User struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	LastLogin int64  `json:"lastLogin"` // milliseconds since epoch, -1 if never
}
