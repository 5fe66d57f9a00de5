package models

import "strings"

// Municipal services that can be declared for a built property.
const (
	ServiceCleaning           = "cleaning"
	ServicePublicLighting     = "public_lighting"
	ServicePavedRoads         = "paved_roads"
	ServiceWastewaterDrainage = "wastewater_drainage"
	ServiceStormwaterDrainage = "stormwater_drainage"
	ServicePavedSidewalks     = "paved_sidewalks"
	ServiceOther              = "other"
)

// BaselineService is always rendered to every built property and cannot be removed.
const BaselineService = ServiceCleaning

// ServiceInfo describes one entry of the service catalog.
type ServiceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ServiceCatalog lists the known services in display order.
var ServiceCatalog = []ServiceInfo{
	{ID: ServiceCleaning, Label: "Nettoyage"},
	{ID: ServicePublicLighting, Label: "Éclairage public"},
	{ID: ServicePavedRoads, Label: "Voies pavées"},
	{ID: ServiceWastewaterDrainage, Label: "Drainage des eaux usées"},
	{ID: ServiceStormwaterDrainage, Label: "Drainage des eaux pluviales"},
	{ID: ServicePavedSidewalks, Label: "Trottoirs pavés"},
	{ID: ServiceOther, Label: "Autres"},
}

// legacyServiceIDs maps the labels stored by the former application onto catalog ids.
var legacyServiceIDs = map[string]string{
	"nettoyage":                   ServiceCleaning,
	"éclairage public":            ServicePublicLighting,
	"voies pavées":                ServicePavedRoads,
	"drainage des eaux usées":     ServiceWastewaterDrainage,
	"drainage des eaux pluviales": ServiceStormwaterDrainage,
	"trottoirs pavés":             ServicePavedSidewalks,
	"autres":                      ServiceOther,
}

// CanonicalServiceID maps a legacy label to its catalog id. Unknown values
// are returned trimmed and unchanged.
func CanonicalServiceID(s string) string {
	trimmed := strings.TrimSpace(s)
	if id, ok := legacyServiceIDs[strings.ToLower(trimmed)]; ok {
		return id
	}
	return trimmed
}

// IsKnownService reports whether id belongs to the service catalog.
func IsKnownService(id string) bool {
	for _, s := range ServiceCatalog {
		if s.ID == id {
			return true
		}
	}
	return false
}

// NormalizeServices returns the distinct, non-empty service ids with the
// baseline service first. The input slice is not modified.
func NormalizeServices(services []string) []string {
	out := make([]string, 0, len(services)+1)
	seen := map[string]struct{}{BaselineService: {}}
	out = append(out, BaselineService)
	for _, s := range services {
		id := CanonicalServiceID(s)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
