package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"keel/internal/crud"
	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/shared/errors"
	"keel/internal/shared/response"
	"keel/internal/shared/status"
)

const (
	menuTreeKey = "menu:tree"
	menuTreeTTL = time.Hour
)

// MenuNode is one entry of the nested navigation tree.
type MenuNode struct {
	ID       uint64      `json:"id"`
	Title    string      `json:"title"`
	Icon     string      `json:"icon"`
	Path     string      `json:"path"`
	Hidden   bool        `json:"hidden"`
	Children []*MenuNode `json:"children"`
}

// dropZeroParent treats parent 0 as "no parent" so the frontend can
// always send the field.
func dropZeroParent(item map[string]any) (map[string]any, error) {
	if v, ok := item["parent"]; ok {
		if n, ok := v.(json.Number); ok && n.String() == "0" {
			delete(item, "parent")
		}
	}
	return item, nil
}

func (h *Resources) registerMenu(rg *gin.RouterGroup) error {
	desc := crud.Descriptor{
		Name:         "menu",
		DisplayField: "title",
		ScalarFields: []string{"title", "parent", "is_parent", "icon", "path", "hidden"},
		CreateFields: []string{"title", "parent", "is_parent", "icon", "path", "hidden"},
		UpdateFields: []string{"title", "parent", "is_parent", "icon", "path", "hidden", "status", "level"},
	}
	hooks := crud.Hooks[models.Menu]{
		PreCreate:       sanitizeFields("title"),
		CreateValidator: dropZeroParent,
		PreUpdate:       sanitizeFields("title"),
		UpdateStatement: stripPrivileged("status"),
		PostCreate:      h.invalidateMenuTree,
		PostUpdate: func(c *gin.Context, _, _ *models.Menu, payload *auth.Claims) error {
			return h.invalidateMenuTree(c, nil, payload)
		},
		PostDelete: func(c *gin.Context, _ []*models.Menu, payload *auth.Claims) error {
			return h.invalidateMenuTree(c, nil, payload)
		},
	}

	resource, err := crud.NewResource(h.db, desc, nil, hooks, h.baseConfig("menu"), h.log)
	if err != nil {
		return err
	}
	resource.Register(rg)

	rg.GET("/menu/tree", h.menuTree)
	return nil
}

func (h *Resources) invalidateMenuTree(c *gin.Context, _ *models.Menu, _ *auth.Claims) error {
	return h.rdb.Del(c.Request.Context(), menuTreeKey).Err()
}

// buildMenuTree nests the active menus by parent, ordered by level.
func (h *Resources) buildMenuTree(ctx context.Context) ([]*MenuNode, error) {
	var menus []models.Menu
	err := h.db.WithContext(ctx).
		Where("status = ?", status.Active).
		Order("level ASC").
		Find(&menus).Error
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint64]*MenuNode, len(menus))
	roots := make([]*MenuNode, 0, len(menus))
	for i := range menus {
		m := &menus[i]
		nodes[m.ID] = &MenuNode{
			ID:       m.ID,
			Title:    m.Title,
			Icon:     m.Icon,
			Path:     m.Path,
			Hidden:   m.Hidden,
			Children: []*MenuNode{},
		}
	}
	for i := range menus {
		m := &menus[i]
		node := nodes[m.ID]
		if m.Parent != nil {
			if parent, ok := nodes[*m.Parent]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// MenuTree godoc
// @Summary Nested navigation tree of active menus
// @Tags menu
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /menu/tree [get]
func (h *Resources) menuTree(c *gin.Context) {
	ctx := c.Request.Context()

	cached, err := h.rdb.Get(ctx, menuTreeKey).Result()
	if err == nil {
		var tree []*MenuNode
		if json.Unmarshal([]byte(cached), &tree) == nil {
			response.OK(c, tree)
			return
		}
	} else if err != redis.Nil {
		h.log.Warnw("menu tree cache read failed", "error", err)
	}

	tree, err := h.buildMenuTree(ctx)
	if err != nil {
		h.log.Errorw("failed to build menu tree", "error", err)
		response.Error(c, errors.New(errors.CommonError))
		return
	}

	if data, err := json.Marshal(tree); err == nil {
		if err := h.rdb.Set(ctx, menuTreeKey, data, menuTreeTTL).Err(); err != nil {
			h.log.Warnw("menu tree cache write failed", "error", err)
		}
	}
	response.OK(c, tree)
}
