package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/xmlimport/internal/catalog"
	"github.com/mrlokans/xmlimport/internal/importer"
)

type TargetsController struct {
	registry *catalog.Registry
}

func NewTargetsController(registry *catalog.Registry) *TargetsController {
	return &TargetsController{registry: registry}
}

type FieldInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	SourceTag string `json:"source_tag"`
	Transform bool   `json:"transform,omitempty"` // A custom converter replaces type coercion
}

type TargetInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Table       string      `json:"table"`
	PrimaryKey  string      `json:"primary_key"`
	ItemTag     string      `json:"item_tag,omitempty"`
	Fields      []FieldInfo `json:"fields"`
}

// List handles GET /api/targets
func (tc *TargetsController) List(c *gin.Context) {
	names := tc.registry.Names()
	targets := make([]TargetInfo, 0, len(names))
	for _, name := range names {
		info, err := tc.describe(name)
		if err != nil {
			respondInternalError(c, err, "describe target "+name)
			return
		}
		targets = append(targets, info)
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets})
}

// Get handles GET /api/targets/:name
func (tc *TargetsController) Get(c *gin.Context) {
	info, err := tc.describe(c.Param("name"))
	if errors.Is(err, catalog.ErrUnknownTarget) {
		respondNotFound(c, "target")
		return
	}
	if err != nil {
		respondInternalError(c, err, "describe target")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (tc *TargetsController) describe(name string) (TargetInfo, error) {
	target, err := tc.registry.Get(name)
	if err != nil {
		return TargetInfo{}, err
	}
	s, err := target.Schema()
	if err != nil {
		return TargetInfo{}, err
	}
	plan, err := importer.NewPlan(s, target.Options)
	if err != nil {
		return TargetInfo{}, err
	}

	info := TargetInfo{
		Name:        target.Name,
		Description: target.Description,
		Table:       s.Table,
		PrimaryKey:  s.PrimaryKey,
		ItemTag:     target.Options.ItemTag,
		Fields:      make([]FieldInfo, 0, len(plan.Descriptors)),
	}
	for _, d := range plan.Descriptors {
		_, custom := target.Options.Transforms[d.Field.Name]
		info.Fields = append(info.Fields, FieldInfo{
			Name:      d.Field.Name,
			Type:      string(d.Field.Type),
			SourceTag: d.SourceTag,
			Transform: custom,
		})
	}
	return info, nil
}
