package crud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/interfaces/http/middleware"
	"keel/internal/shared/logger"
	"keel/internal/shared/status"
)

type nopLogger struct{}

func newNopLogger() logger.Interface { return &nopLogger{} }

func (l *nopLogger) Debug(msg string, args ...any)                   {}
func (l *nopLogger) Info(msg string, args ...any)                    {}
func (l *nopLogger) Warn(msg string, args ...any)                    {}
func (l *nopLogger) Error(msg string, args ...any)                   {}
func (l *nopLogger) With(args ...any) logger.Interface               { return l }
func (l *nopLogger) Named(name string) logger.Interface              { return l }
func (l *nopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Errorw(msg string, keysAndValues ...interface{}) {}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.SetupJoinTables(db))
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func roleResource(t *testing.T, db *gorm.DB, hooks Hooks[models.Role], cfg Config) *Resource[models.Role] {
	desc := Descriptor{
		Name:         "role",
		DisplayField: "name",
		ScalarFields: []string{"name", "detail"},
		CreateFields: []string{"name", "detail"},
		UpdateFields: []string{"name", "detail", "level", "status"},
	}
	relations := []RelationField[models.Role]{
		{
			Name:        "permissions",
			Association: "Permissions",
			IDs: func(m *models.Role) []uint64 {
				ids := make([]uint64, 0, len(m.Permissions))
				for _, p := range m.Permissions {
					ids = append(ids, p.ID)
				}
				return ids
			},
		},
	}
	resource, err := NewResource(db, desc, relations, hooks, cfg, newNopLogger())
	require.NoError(t, err)
	return resource
}

// payloadSetter fakes the auth middleware for tests.
func payloadSetter(claims *auth.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPayload(c, claims)
		c.Next()
	}
}

func setupRouter(resource *Resource[models.Role], claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	rg := engine.Group("/api/v1")
	rg.Use(payloadSetter(claims))
	resource.Register(rg)
	return engine
}

type envelope struct {
	Code    string         `json:"code"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func seedRole(t *testing.T, db *gorm.DB, name string, st status.Status) *models.Role {
	role := &models.Role{Name: name}
	role.Status = st
	require.NoError(t, db.Create(role).Error)
	return role
}

func superuserClaims() *auth.Claims {
	return &auth.Claims{Data: &auth.UserInfo{ID: 1, Username: "root", Superuser: true}}
}

func TestListVisibilityAndOrdering(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	a := seedRole(t, db, "a", status.Active)
	b := seedRole(t, db, "b", status.Active)
	seedRole(t, db, "c", status.Obsolete)

	engine := setupRouter(resource, auth.Anonymous())
	rec, env := doRequest(t, engine, "GET", "/api/v1/role?orders=-id", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S00000", env.Code)
	assert.True(t, env.Success)

	items := env.Data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	assert.Equal(t, float64(b.ID), first["id"])
	assert.Equal(t, float64(a.ID), second["id"])

	pagination := env.Data["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(1), pagination["index"])
	assert.Equal(t, float64(0), pagination["offset"])
}

func TestListSuperuserSeesObsolete(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	seedRole(t, db, "live", status.Active)
	seedRole(t, db, "gone", status.Obsolete)

	engine := setupRouter(resource, superuserClaims())
	_, env := doRequest(t, engine, "GET", "/api/v1/role?filters=status=obsolete", nil)

	items := env.Data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "gone", items[0].(map[string]any)["name"])
}

func TestListObsoleteRequestByAnonymousIsEmpty(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	seedRole(t, db, "gone", status.Obsolete)

	engine := setupRouter(resource, auth.Anonymous())
	rec, env := doRequest(t, engine, "GET", "/api/v1/role?filters=status=obsolete", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	items := env.Data["items"].([]any)
	assert.Empty(t, items)
}

func TestListPaginationContract(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{Paginate: 20})

	for i := 0; i < 5; i++ {
		seedRole(t, db, fmt.Sprintf("role-%d", i), status.Active)
	}

	engine := setupRouter(resource, auth.Anonymous())

	_, env := doRequest(t, engine, "GET", "/api/v1/role?index=2&limit=2&orders=id", nil)
	pagination := env.Data["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["index"])
	assert.Equal(t, float64(2), pagination["limit"])
	assert.Equal(t, float64(2), pagination["offset"])
	assert.Equal(t, float64(5), pagination["total"])
	assert.Len(t, env.Data["items"].([]any), 2)

	for _, path := range []string{
		"/api/v1/role?index=0",
		"/api/v1/role?limit=0",
		"/api/v1/role?limit=-3",
		"/api/v1/role?limit=21",
	} {
		rec, env := doRequest(t, engine, "GET", path, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
		assert.Equal(t, "E00024", env.Code, path)
	}
}

func TestListByExplicitIDs(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	a := seedRole(t, db, "a", status.Active)
	seedRole(t, db, "b", status.Active)
	c := seedRole(t, db, "c", status.Active)

	engine := setupRouter(resource, auth.Anonymous())
	path := fmt.Sprintf("/api/v1/role?ids=%d&ids=%d", a.ID, c.ID)
	_, env := doRequest(t, engine, "GET", path, nil)

	items := env.Data["items"].([]any)
	require.Len(t, items, 2)
	pagination := env.Data["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(2), pagination["limit"])
}

func TestGetOne(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	role := seedRole(t, db, "target", status.Active)
	obsolete := seedRole(t, db, "gone", status.Obsolete)

	engine := setupRouter(resource, auth.Anonymous())

	rec, env := doRequest(t, engine, "GET", fmt.Sprintf("/api/v1/role/%d", role.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "target", env.Data["name"])
	assert.Equal(t, []any{}, env.Data["permissions"])

	rec, env = doRequest(t, engine, "GET", "/api/v1/role/999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "E00021", env.Code)

	// Obsolete rows are invisible to non-privileged callers.
	rec, env = doRequest(t, engine, "GET", fmt.Sprintf("/api/v1/role/%d", obsolete.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "E00021", env.Code)

	// But a superuser can fetch them.
	suEngine := setupRouter(resource, superuserClaims())
	rec, _ = doRequest(t, suEngine, "GET", fmt.Sprintf("/api/v1/role/%d", obsolete.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndDuplicate(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})
	engine := setupRouter(resource, superuserClaims())

	rec, env := doRequest(t, engine, "POST", "/api/v1/role", gin.H{"name": "dup", "detail": "first"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S00000", env.Code)
	assert.Equal(t, "dup", env.Data["name"])
	assert.Equal(t, string(status.Active), env.Data["status"])
	assert.NotEqual(t, float64(0), env.Data["id"])

	rec, env = doRequest(t, engine, "POST", "/api/v1/role", gin.H{"name": "dup"})
	assert.Equal(t, 540, rec.Code)
	assert.Equal(t, "E00023", env.Code)
	assert.Contains(t, env.Message, "name")
}

func TestCreateRejectsReservedSuffix(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})
	engine := setupRouter(resource, superuserClaims())

	rec, env := doRequest(t, engine, "POST", "/api/v1/role", gin.H{"name": "ops_123456_deleted"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "E00024", env.Code)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreateHooksRun(t *testing.T) {
	db := setupDB(t)
	postCreateCalled := false
	hooks := Hooks[models.Role]{
		PreCreate: func(c *gin.Context, item map[string]any, payload *auth.Claims) (map[string]any, error) {
			item["detail"] = "from-pre-create"
			return item, nil
		},
		PostCreate: func(c *gin.Context, model *models.Role, payload *auth.Claims) error {
			postCreateCalled = true
			// Post-commit failures must not fail the operation.
			return fmt.Errorf("audit sink down")
		},
	}
	resource := roleResource(t, db, hooks, Config{})
	engine := setupRouter(resource, superuserClaims())

	rec, env := doRequest(t, engine, "POST", "/api/v1/role", gin.H{"name": "hooked"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S00000", env.Code)
	assert.Equal(t, "from-pre-create", env.Data["detail"])
	assert.True(t, postCreateCalled)
}

func TestUpdatePartialSemantics(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})
	engine := setupRouter(resource, superuserClaims())

	role := seedRole(t, db, "stable", status.Active)
	role.Detail = "original detail"
	require.NoError(t, db.Save(role).Error)

	// Only detail in the body: name must stay untouched.
	rec, env := doRequest(t, engine, "PUT", fmt.Sprintf("/api/v1/role/%d", role.ID), gin.H{"detail": "changed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stable", env.Data["name"])
	assert.Equal(t, "changed", env.Data["detail"])

	rec, env = doRequest(t, engine, "PUT", "/api/v1/role/424242", gin.H{"detail": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "E00021", env.Code)
}

func TestUpdateStatementOverrideStripsFields(t *testing.T) {
	db := setupDB(t)
	hooks := Hooks[models.Role]{
		UpdateStatement: func(data map[string]any, payload *auth.Claims) map[string]any {
			if !isSuperuser(payload) {
				delete(data, "status")
			}
			return data
		},
	}
	resource := roleResource(t, db, hooks, Config{})
	engine := setupRouter(resource, auth.Anonymous())

	role := seedRole(t, db, "guarded", status.Active)
	_, env := doRequest(t, engine, "PUT", fmt.Sprintf("/api/v1/role/%d", role.ID), gin.H{"status": "frozen", "detail": "d"})
	assert.Equal(t, string(status.Active), env.Data["status"])
	assert.Equal(t, "d", env.Data["detail"])
}

func TestSoftDeleteFreesDisplayName(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})
	engine := setupRouter(resource, superuserClaims())

	role := seedRole(t, db, "reusable", status.Active)

	rec, env := doRequest(t, engine, "DELETE", fmt.Sprintf("/api/v1/role/%d", role.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// The returned projection is the pre-delete capture.
	assert.Equal(t, "reusable", env.Data["name"])

	var stored models.Role
	require.NoError(t, db.First(&stored, "id = ?", role.ID).Error)
	assert.Equal(t, status.Obsolete, stored.Status)
	assert.Regexp(t, `^reusable_\d{6}_deleted$`, stored.Name)

	// The display name is free for reuse.
	rec, env = doRequest(t, engine, "POST", "/api/v1/role", gin.H{"name": "reusable"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S00000", env.Code)
}

func TestDeletePreHookVeto(t *testing.T) {
	db := setupDB(t)
	hooks := Hooks[models.Role]{
		PreDelete: func(c *gin.Context, rows []*models.Role, payload *auth.Claims) error {
			return fmt.Errorf("protected role cannot be deleted")
		},
	}
	resource := roleResource(t, db, hooks, Config{})
	engine := setupRouter(resource, superuserClaims())

	role := seedRole(t, db, "protected", status.Active)
	rec, env := doRequest(t, engine, "DELETE", fmt.Sprintf("/api/v1/role/%d", role.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "E00024", env.Code)

	var stored models.Role
	require.NoError(t, db.First(&stored, "id = ?", role.ID).Error)
	assert.Equal(t, status.Active, stored.Status)
}

func TestDeleteMany(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})
	engine := setupRouter(resource, superuserClaims())

	a := seedRole(t, db, "bulk-a", status.Active)
	b := seedRole(t, db, "bulk-b", status.Active)

	rec, env := doRequest(t, engine, "DELETE", "/api/v1/role", []uint64{a.ID, b.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	items := env.Data["items"].([]any)
	assert.Len(t, items, 2)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Where("status = ?", status.Obsolete).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestHardDeleteRemovesRow(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{HardDelete: true})
	engine := setupRouter(resource, superuserClaims())

	role := seedRole(t, db, "ephemeral", status.Active)
	rec, _ := doRequest(t, engine, "DELETE", fmt.Sprintf("/api/v1/role/%d", role.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Where("id = ?", role.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRouteToggles(t *testing.T) {
	db := setupDB(t)
	cfg := Config{
		Create: Route{Disabled: true},
		Update: Route{Disabled: true},
	}
	resource := roleResource(t, db, Hooks[models.Role]{}, cfg)
	engine := setupRouter(resource, superuserClaims())

	req := httptest.NewRequest("POST", "/api/v1/role", bytes.NewReader([]byte(`{"name":"x"}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func permissionIDs(t *testing.T, db *gorm.DB, roleID uint64) []uint64 {
	var role models.Role
	require.NoError(t, db.Preload("Permissions").First(&role, "id = ?", roleID).Error)
	ids := make([]uint64, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestMergeAssociation(t *testing.T) {
	db := setupDB(t)

	role := seedRole(t, db, "merge-target", status.Active)
	perms := make([]*models.Permission, 4)
	for i := range perms {
		perms[i] = &models.Permission{
			Title:  fmt.Sprintf("perm-%d", i),
			URL:    fmt.Sprintf("/api/v1/thing%d", i),
			Method: models.MethodGet,
			Code:   fmt.Sprintf("thing:%d", i),
		}
		require.NoError(t, db.Create(perms[i]).Error)
	}

	related := func(ids []uint64) any {
		out := make([]*models.Permission, 0, len(ids))
		for _, id := range ids {
			out = append(out, &models.Permission{BaseModel: models.BaseModel{ID: id}})
		}
		return out
	}

	// Start with {0,1,2}.
	initial := []uint64{perms[0].ID, perms[1].ID, perms[2].ID}
	require.NoError(t, MergeAssociation(db, role, "Permissions", nil, initial, related))
	assert.ElementsMatch(t, initial, permissionIDs(t, db, role.ID))

	// Merge to {1,2,3}: 0 removed, 3 added.
	target := []uint64{perms[1].ID, perms[2].ID, perms[3].ID}
	require.NoError(t, MergeAssociation(db, role, "Permissions", initial, target, related))
	assert.ElementsMatch(t, target, permissionIDs(t, db, role.ID))

	// Idempotence: merging the same target again changes nothing.
	require.NoError(t, MergeAssociation(db, role, "Permissions", target, target, related))
	assert.ElementsMatch(t, target, permissionIDs(t, db, role.ID))
}

func TestRelationProjection(t *testing.T) {
	db := setupDB(t)
	resource := roleResource(t, db, Hooks[models.Role]{}, Config{})

	role := seedRole(t, db, "projector", status.Active)
	perm := &models.Permission{Title: "read", URL: "/api/v1/x", Method: models.MethodGet, Code: "x:read"}
	require.NoError(t, db.Create(perm).Error)
	require.NoError(t, db.Model(role).Association("Permissions").Append(perm))

	engine := setupRouter(resource, superuserClaims())
	_, env := doRequest(t, engine, "GET", fmt.Sprintf("/api/v1/role/%d", role.ID), nil)

	ids := env.Data["permissions"].([]any)
	require.Len(t, ids, 1)
	assert.Equal(t, float64(perm.ID), ids[0])

	// Projection exposes only declared fields.
	_, hasPassword := env.Data["password"]
	assert.False(t, hasPassword)
}
