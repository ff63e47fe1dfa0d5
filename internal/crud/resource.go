package crud

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keel/internal/infrastructure/auth"
	"keel/internal/interfaces/http/middleware"
	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
	"keel/internal/shared/query"
	"keel/internal/shared/response"
	"keel/internal/shared/status"
)

// identifiable is the minimal model contract: every entity embeds a
// base model exposing its primary key.
type identifiable interface {
	GetID() uint64
}

// Resource generates the six standard operations for one entity.
type Resource[M any] struct {
	db        *gorm.DB
	desc      Descriptor
	relations []RelationField[M]
	hooks     Hooks[M]
	cfg       Config
	log       logger.Interface
}

// NewResource validates the descriptor and builds the generator.
func NewResource[M any](db *gorm.DB, desc Descriptor, relations []RelationField[M], hooks Hooks[M], cfg Config, log logger.Interface) (*Resource[M], error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if _, ok := any(new(M)).(identifiable); !ok {
		return nil, fmt.Errorf("model for %s does not expose its primary key", desc.Name)
	}
	return &Resource[M]{
		db:        db,
		desc:      desc,
		relations: relations,
		hooks:     hooks,
		cfg:       cfg,
		log:       log.Named("crud." + desc.Name),
	}, nil
}

// Register attaches the enabled routes under /<name>.
func (r *Resource[M]) Register(rg *gin.RouterGroup) {
	grp := rg.Group("/" + r.desc.Name)

	register := func(route Route, method, path string, handler gin.HandlerFunc) {
		if route.Disabled {
			return
		}
		handlers := make([]gin.HandlerFunc, 0, len(route.Middleware)+1)
		handlers = append(handlers, route.Middleware...)
		handlers = append(handlers, handler)
		grp.Handle(method, path, handlers...)
	}

	register(r.cfg.GetAll, "GET", "", r.getAll)
	register(r.cfg.GetOne, "GET", "/:item_id", r.getOne)
	register(r.cfg.Create, "POST", "", r.create)
	register(r.cfg.Update, "PUT", "/:item_id", r.update)
	register(r.cfg.DeleteOne, "DELETE", "/:item_id", r.deleteOne)
	register(r.cfg.DeleteAll, "DELETE", "", r.deleteAll)
}

func (r *Resource[M]) modelID(m *M) uint64 {
	if ident, ok := any(m).(identifiable); ok {
		return ident.GetID()
	}
	return 0
}

func (r *Resource[M]) displayField() string {
	if r.desc.DisplayField != "" {
		return r.desc.DisplayField
	}
	return r.cfg.DeleteUpdateField
}

func isSuperuser(payload *auth.Claims) bool {
	return !payload.IsAnonymous() && payload.Data.Superuser
}

// baseQuery starts a read statement with every relation preloaded.
func (r *Resource[M]) baseQuery(c *gin.Context) *gorm.DB {
	tx := r.db.WithContext(c.Request.Context()).Model(new(M))
	for _, rel := range r.relations {
		tx = tx.Preload(rel.Association)
	}
	return tx
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf(errors.DataValidationFailed, "%s must be an integer, got %q", name, raw)
	}
	return value, nil
}

func pathID(c *gin.Context) (uint64, error) {
	raw := c.Param("item_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Newf(errors.DataValidationFailed, "item_id must be an integer, got %q", raw)
	}
	return id, nil
}

// bindBody decodes the request body keeping numbers as literals so
// 53-bit ids survive the round trip.
func bindBody(c *gin.Context) (map[string]any, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var item map[string]any
	if err := dec.Decode(&item); err != nil {
		return nil, errors.Newf(errors.DataValidationFailed, "invalid request body: %v", err)
	}
	return item, nil
}

// intersect keeps only the fields the operation's shape declares.
// Fields absent from the body stay absent, preserving partial-update
// semantics.
func intersect(item map[string]any, fields []string) map[string]any {
	result := make(map[string]any, len(item))
	for _, field := range fields {
		if value, ok := item[field]; ok {
			result[field] = value
		}
	}
	return result
}

// decodeModel turns validated column values into a model instance.
func decodeModel[M any](item map[string]any) (*M, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	model := new(M)
	if err := json.Unmarshal(data, model); err != nil {
		return nil, errors.Newf(errors.DataValidationFailed, "invalid field value: %v", err)
	}
	return model, nil
}

// translateError maps backend failures to the operation's coded error,
// extracting field and value from duplicate-key messages when possible.
func (r *Resource[M]) translateError(err error, fallback errors.Status) error {
	if errors.IsDuplicateError(err) {
		if field, value, ok := errors.ParseDuplicateEntry(err); ok {
			if value != "" {
				return errors.Newf(errors.PrimaryKeyExisted, "value %q already exists for field %s", value, field)
			}
			return errors.Newf(errors.PrimaryKeyExisted, "unique field %s already exists", field)
		}
		return errors.New(errors.PrimaryKeyExisted)
	}
	r.log.Errorw("storage operation failed", "resource", r.desc.Name, "error", err)
	return errors.New(fallback)
}

// validationError coerces hook failures into the 422 class unless the
// hook already chose a status.
func validationError(err error) error {
	if errors.GetAppError(err) != nil {
		return err
	}
	return errors.Newf(errors.DataValidationFailed, "%v", err)
}

// ##### handlers #####

func (r *Resource[M]) getAll(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)
	superuser := isSuperuser(payload)

	filters := query.ParseFilters(c.QueryArray("filters"))
	filters.ApplyStatusVisibility(superuser)
	orders := query.ParseOrders(c.QueryArray("orders"), r.desc.HasColumn)

	// An explicit id list bypasses pagination: the page is the set.
	if idTokens := c.QueryArray("ids"); len(idTokens) > 0 {
		ids := make([]uint64, 0, len(idTokens))
		for _, token := range idTokens {
			id, err := strconv.ParseUint(token, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}

		tx := r.baseQuery(c).
			Scopes(filters.Scope(r.desc.HasColumn), query.OrderScope(orders, "id")).
			Where("id IN ?", ids)
		if r.hooks.GetAllStatement != nil {
			tx = r.hooks.GetAllStatement(tx, payload)
		}

		var rows []*M
		if err := tx.Find(&rows).Error; err != nil {
			response.Error(c, r.translateError(err, errors.CommonError))
			return
		}
		items, err := r.projectAll(rows)
		if err != nil {
			response.Error(c, err)
			return
		}
		total := len(items)
		response.OK(c, response.ListData{
			Items:      items,
			Pagination: response.Pagination{Index: 1, Limit: total, Offset: 0, Total: int64(total)},
		})
		return
	}

	index, err := intQuery(c, "index", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination, err := query.NewPagination(index, limit, r.cfg.maxPageSize())
	if err != nil {
		response.Error(c, err)
		return
	}

	countTx := r.db.WithContext(c.Request.Context()).Model(new(M)).
		Scopes(filters.Scope(r.desc.HasColumn))
	if r.hooks.GetAllStatement != nil {
		countTx = r.hooks.GetAllStatement(countTx, payload)
	}
	var total int64
	if err := countTx.Count(&total).Error; err != nil {
		response.Error(c, r.translateError(err, errors.CommonError))
		return
	}

	tx := r.baseQuery(c).Scopes(
		filters.Scope(r.desc.HasColumn),
		query.OrderScope(orders, "id"),
		pagination.Scope(),
	)
	if r.hooks.GetAllStatement != nil {
		tx = r.hooks.GetAllStatement(tx, payload)
	}

	var rows []*M
	if err := tx.Find(&rows).Error; err != nil {
		response.Error(c, r.translateError(err, errors.CommonError))
		return
	}
	items, err := r.projectAll(rows)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, response.ListData{
		Items: items,
		Pagination: response.Pagination{
			Index:  pagination.Index,
			Limit:  pagination.Limit,
			Offset: pagination.Offset,
			Total:  total,
		},
	})
}

func (r *Resource[M]) getOne(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)

	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	filters := query.Filters{}
	filters.ApplyStatusVisibility(isSuperuser(payload))

	tx := r.baseQuery(c).
		Scopes(filters.Scope(r.desc.HasColumn)).
		Where("id = ?", id).
		Limit(2)
	if r.hooks.GetOneStatement != nil {
		tx = r.hooks.GetOneStatement(tx, payload)
	}

	var rows []*M
	if err := tx.Find(&rows).Error; err != nil {
		response.Error(c, r.translateError(err, errors.CommonError))
		return
	}
	switch len(rows) {
	case 0:
		response.Error(c, errors.New(errors.ItemNotFound))
		return
	case 1:
	default:
		// Primary-key invariant violated; surfaced to the caller but a
		// data integrity bug on our side.
		r.log.Errorw("multiple rows for primary key", "resource", r.desc.Name, "id", id)
		response.Error(c, errors.New(errors.MultipleResultsFound))
		return
	}

	item, err := r.project(rows[0])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// fetchByID reloads a row with relations, without visibility filters.
func (r *Resource[M]) fetchByID(c *gin.Context, id uint64) (*M, error) {
	var rows []*M
	if err := r.baseQuery(c).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, r.translateError(err, errors.CommonError)
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ItemNotFound)
	}
	return rows[0], nil
}

func (r *Resource[M]) create(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)

	body, err := bindBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item := intersect(body, r.desc.CreateFields)

	if r.hooks.PreCreate != nil {
		if item, err = r.hooks.PreCreate(c, item, payload); err != nil {
			response.Error(c, validationError(err))
			return
		}
	}
	if r.hooks.CreateValidator != nil {
		if item, err = r.hooks.CreateValidator(item); err != nil {
			response.Error(c, validationError(err))
			return
		}
	}
	if err := checkReservedSuffix(item, r.displayField()); err != nil {
		response.Error(c, err)
		return
	}

	model, err := decodeModel[M](item)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := r.db.WithContext(c.Request.Context()).Create(model).Error; err != nil {
		response.Error(c, r.translateError(err, errors.CreateFailed))
		return
	}

	created, err := r.fetchByID(c, r.modelID(model))
	if err != nil {
		response.Error(c, err)
		return
	}
	if r.hooks.PostCreate != nil {
		if err := r.hooks.PostCreate(c, created, payload); err != nil {
			r.log.Warnw("post-create hook failed", "resource", r.desc.Name, "error", err)
		}
	}

	projected, err := r.project(created)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, projected)
}

func (r *Resource[M]) update(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)

	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Only fields present in the body are touched.
	item := intersect(body, r.desc.UpdateFields)

	if r.hooks.PreUpdate != nil {
		if item, err = r.hooks.PreUpdate(c, item, payload); err != nil {
			response.Error(c, validationError(err))
			return
		}
	}
	if err := checkReservedSuffix(item, r.displayField()); err != nil {
		response.Error(c, err)
		return
	}
	if r.hooks.UpdateStatement != nil {
		item = r.hooks.UpdateStatement(item, payload)
	}

	original, err := r.fetchByID(c, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if len(item) > 0 {
		err = r.db.WithContext(c.Request.Context()).
			Model(new(M)).
			Where("id = ?", id).
			Updates(item).Error
		if err != nil {
			response.Error(c, r.translateError(err, errors.UpdateFailed))
			return
		}
	}

	updated, err := r.fetchByID(c, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if r.hooks.PostUpdate != nil {
		if err := r.hooks.PostUpdate(c, updated, original, payload); err != nil {
			r.log.Warnw("post-update hook failed", "resource", r.desc.Name, "error", err)
		}
	}

	projected, err := r.project(updated)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, projected)
}

// deleteRows captures, vetoes, then removes or tombstones the rows.
// The returned projections reflect the state before deletion.
func (r *Resource[M]) deleteRows(c *gin.Context, ids []uint64, payload *auth.Claims) ([]map[string]any, error) {
	var rows []*M
	if err := r.baseQuery(c).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, r.translateError(err, errors.DeleteFailed)
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ItemNotFound)
	}

	if r.hooks.PreDelete != nil {
		if err := r.hooks.PreDelete(c, rows, payload); err != nil {
			return nil, validationError(err)
		}
	}

	captured, err := r.projectAll(rows)
	if err != nil {
		return nil, err
	}

	field := r.displayField()
	now := time.Now()
	err = r.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			if r.cfg.HardDelete {
				if err := tx.Select(clause.Associations).Delete(row).Error; err != nil {
					return err
				}
				continue
			}

			data := map[string]any{"status": status.Obsolete}
			if field != "" {
				if value, ok := captured[i][field].(string); ok && value != "" {
					data[field] = value + deletedSuffix(now)
				}
			}
			if err := tx.Model(new(M)).Where("id = ?", r.modelID(row)).Updates(data).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, r.translateError(err, errors.DeleteFailed)
	}

	if r.hooks.PostDelete != nil {
		if err := r.hooks.PostDelete(c, rows, payload); err != nil {
			r.log.Warnw("post-delete hook failed", "resource", r.desc.Name, "error", err)
		}
	}
	return captured, nil
}

func (r *Resource[M]) deleteOne(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)

	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	captured, err := r.deleteRows(c, []uint64{id}, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, captured[0])
}

func (r *Resource[M]) deleteAll(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)

	var ids []uint64
	if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
		response.Error(c, errors.Newf(errors.DataValidationFailed, "request body must be a non-empty id list"))
		return
	}

	captured, err := r.deleteRows(c, ids, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	total := len(captured)
	response.OK(c, response.ListData{
		Items:      captured,
		Pagination: response.Pagination{Index: 1, Limit: total, Offset: 0, Total: int64(total)},
	})
}
