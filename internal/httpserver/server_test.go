package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/ratelimit"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/testutil"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

var testSecret = []byte("handler-test-secret")

type envOptions struct {
	visibility    service.Visibility
	requireSeller bool
	storeTimeout  time.Duration
	authLimiter   echo.MiddlewareFunc
}

type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	if opts.storeTimeout == 0 {
		opts.storeTimeout = 5 * time.Second
	}
	if opts.visibility == "" {
		opts.visibility = service.VisibilityAll
	}

	r := repo.New(db, opts.storeTimeout)
	e := NewEcho(logging.NewWithWriter(io.Discard, "error"), nil)
	Register(e, &Deps{
		CatalogHandler: &CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		OrderHandler:   &OrderHTTP{Svc: &service.OrderService{Repo: r, Visibility: opts.visibility}},
		AuthHandler:    &AuthHTTP{Svc: &service.AuthService{Repo: r, Issuer: tokens.NewIssuer(testSecret, time.Hour)}},
		HealthHandler:  &HealthHTTP{DB: db},
		JWTSecret:      testSecret,
		RequireSeller:  opts.requireSeller,
		AuthLimiter:    opts.authLimiter,
	})
	return &testEnv{t: t, e: e, db: db}
}

func (env *testEnv) token(u models.User) string {
	env.t.Helper()
	raw, _, err := tokens.NewIssuer(testSecret, time.Hour).Issue(tokens.Identity{UserID: u.ID, Role: u.Role})
	require.NoError(env.t, err)
	return raw
}

func (env *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) count(model any) int64 {
	env.t.Helper()
	var n int64
	require.NoError(env.t, env.db.Model(model).Count(&n).Error)
	return n
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "", "").Code)
}

func TestProducts_CreateThenGetRoundTrip(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(http.MethodPost, "/products", `{"name":"Desk lamp","description":"Warm light","price":24.5}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Product](t, rec)
	assert.NotZero(t, created.ID)

	first := env.do(http.MethodGet, "/products/"+itoa(created.ID), "", "")
	require.Equal(t, http.StatusOK, first.Code)
	got := decode[models.Product](t, first)
	assert.Equal(t, created, got)

	second := env.do(http.MethodGet, "/products/"+itoa(created.ID), "", "")
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	list := decode[[]models.Product](t, env.do(http.MethodGet, "/products", "", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])
}

func TestProducts_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(http.MethodPost, "/products", `{"price":-5,"image":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"errors":[
		{"field":"name","message":"Required"},
		{"field":"price","message":"Must be greater than or equal to 0"}
	]}`, rec.Body.String())

	rec = env.do(http.MethodPut, "/products/1", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.count(&models.Product{}))
}

func TestProducts_UpdateAndNotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	p := testutil.SeedProduct(t, env.db, "Chair", 40)

	rec := env.do(http.MethodPut, "/products/"+itoa(p.ID), `{"price":35}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Product](t, rec)
	assert.Equal(t, 35.0, got.Price)
	assert.Equal(t, "Chair", got.Name)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/products/999", `{"price":1}`, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/products/999", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/products/abc", "", "").Code)
}

func TestProducts_DeleteReferencedIsConflict(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "a@example.com", models.RoleUser)
	used := testutil.SeedProduct(t, env.db, "used", 1)
	free := testutil.SeedProduct(t, env.db, "free", 1)

	rec := env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(used.ID)+`,"quantity":1}]}`, env.token(u))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusConflict, env.do(http.MethodDelete, "/products/"+itoa(used.ID), "", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/products/"+itoa(free.ID), "", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/products/"+itoa(free.ID), "", "").Code)
}

func TestProducts_RequireSeller(t *testing.T) {
	env := newTestEnv(t, envOptions{requireSeller: true})
	user := testutil.SeedUser(t, env.db, "u@example.com", models.RoleUser)
	seller := testutil.SeedUser(t, env.db, "s@example.com", models.RoleSeller)
	body := `{"name":"Mug","price":3}`

	rec := env.do(http.MethodPost, "/products", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/products", body, env.token(user)).Code)

	rec = env.do(http.MethodPost, "/products", body, env.token(seller))
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[models.Product](t, rec)
	require.NotNil(t, p.SellerID)
	assert.Equal(t, seller.ID, *p.SellerID)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/products", "", "").Code)
}

func TestProducts_SearchDisabled(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/products/search", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/products/search?q=lamp", "", "").Code)
}

func TestCreateOrder_ServerPriceWins(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "a@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, env.db, "TV", 499.99)

	body := `{"order":{"shippingName":"Ann","userId":999},"items":[{"productId":` + itoa(p.ID) + `,"quantity":2,"price":0.01}]}`
	rec := env.do(http.MethodPost, "/orders", body, env.token(u))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	order := decode[models.OrderWithItems](t, rec)
	assert.Equal(t, u.ID, order.UserID)
	assert.Equal(t, "Ann", *order.ShippingName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 499.99, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	rec = env.do(http.MethodGet, "/orders/"+itoa(order.ID), "", env.token(u))
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[models.OrderWithItems](t, rec)
	assert.Equal(t, order.Items, stored.Items)
}

func TestCreateOrder_UnauthenticatedWritesNothing(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	p := testutil.SeedProduct(t, env.db, "TV", 10)
	body := `{"items":[{"productId":` + itoa(p.ID) + `,"quantity":1}]}`

	for _, token := range []string{"", "not-a-jwt"} {
		rec := env.do(http.MethodPost, "/orders", body, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
	}
	assert.Zero(t, env.count(&models.Order{}))
	assert.Zero(t, env.count(&models.OrderItem{}))
}

func TestCreateOrder_Rejections(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "a@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, env.db, "TV", 10)
	tok := env.token(u)

	rec := env.do(http.MethodPost, "/orders", `{"items":[]}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(p.ID)+`,"quantity":1},{"productId":424242,"quantity":1}]}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Product with ID 424242 not found or is unavailable."}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(p.ID)+`,"quantity":-1}]}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "product ID "+itoa(p.ID))

	rec = env.do(http.MethodPost, "/orders", `{"items":[{"productId":"x","quantity":1}]}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, env.count(&models.Order{}))
}

func TestGetOrder_ItemlessOrderHasEmptyItems(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "a@example.com", models.RoleUser)
	order := models.Order{UserID: u.ID, Status: models.OrderStatusNew}
	require.NoError(t, env.db.Create(&order).Error)

	rec := env.do(http.MethodGet, "/orders/"+itoa(order.ID), "", env.token(u))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "[]", string(raw["items"]))
	assert.Equal(t, itoa(order.ID), string(raw["id"]))
}

func TestGetOrder_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "a@example.com", models.RoleUser)

	rec := env.do(http.MethodGet, "/orders/9999", "", env.token(u))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Order not found."}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/orders/zero", "", env.token(u)).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/orders/1", "", "").Code)
}

func seedTwoOrders(t *testing.T, env *testEnv) (alice, bob, seller models.User, aliceOrder, bobOrder uint) {
	t.Helper()
	alice = testutil.SeedUser(t, env.db, "alice@example.com", models.RoleUser)
	bob = testutil.SeedUser(t, env.db, "bob@example.com", models.RoleUser)
	seller = testutil.SeedUser(t, env.db, "seller@example.com", models.RoleSeller)

	sold := models.Product{Name: "sold", Price: 2, SellerID: &seller.ID}
	require.NoError(t, env.db.Create(&sold).Error)
	plain := testutil.SeedProduct(t, env.db, "plain", 1)

	rec := env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(sold.ID)+`,"quantity":1}]}`, env.token(alice))
	require.Equal(t, http.StatusCreated, rec.Code)
	aliceOrder = decode[models.OrderWithItems](t, rec).ID

	rec = env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(plain.ID)+`,"quantity":1}]}`, env.token(bob))
	require.Equal(t, http.StatusCreated, rec.Code)
	bobOrder = decode[models.OrderWithItems](t, rec).ID
	return
}

func TestListOrders_DefaultReturnsEveryOrder(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	alice, _, _, _, bobOrder := seedTwoOrders(t, env)

	rec := env.do(http.MethodGet, "/orders", "", env.token(alice))
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]map[string]any](t, rec)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.NotContains(t, o, "items")
	}

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/orders/"+itoa(bobOrder), "", env.token(alice)).Code)
}

func TestListOrders_ScopedByRole(t *testing.T) {
	env := newTestEnv(t, envOptions{visibility: service.VisibilityScoped})
	alice, bob, seller, aliceOrder, bobOrder := seedTwoOrders(t, env)

	mine := decode[[]models.Order](t, env.do(http.MethodGet, "/orders", "", env.token(bob)))
	require.Len(t, mine, 1)
	assert.Equal(t, bobOrder, mine[0].ID)

	sold := decode[[]models.Order](t, env.do(http.MethodGet, "/orders", "", env.token(seller)))
	require.Len(t, sold, 1)
	assert.Equal(t, aliceOrder, sold[0].ID)

	admin := models.User{ID: 500, Role: models.RoleAdmin}
	assert.Len(t, decode[[]models.Order](t, env.do(http.MethodGet, "/orders", "", env.token(admin))), 2)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/orders/"+itoa(bobOrder), "", env.token(alice)).Code)
}

func TestUpdateOrder_WhitelistedFieldsOnly(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	alice, _, _, aliceOrder, _ := seedTwoOrders(t, env)
	tok := env.token(alice)

	rec := env.do(http.MethodPut, "/orders/"+itoa(aliceOrder), `{"status":"Paid","shippingAddress":"2 Oak Rd","userId":999,"id":777}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[models.Order](t, rec)
	assert.Equal(t, aliceOrder, got.ID)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
	assert.Equal(t, "2 Oak Rd", *got.ShippingAddress)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/orders/"+itoa(aliceOrder), `{"userId":1}`, tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/orders/"+itoa(aliceOrder), `{"status":"Lost"}`, tok).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/orders/9999", `{"status":"Paid"}`, tok).Code)
}

func TestAuth_RegisterLoginAndOrder(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(http.MethodPost, "/auth/register", `{"email":" Ann@Example.com","password":"Passw0rd!","name":"Ann"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	user := decode[models.User](t, rec)
	assert.Equal(t, "ann@example.com", user.Email)

	rec = env.do(http.MethodPost, "/auth/register", `{"email":"ann@example.com","password":"Passw0rd!"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"password"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := env.do(http.MethodPost, "/auth/login", `{"email":"ann@example.com","password":"Wrong1!x"}`, "")
	unknown := env.do(http.MethodPost, "/auth/login", `{"email":"zed@example.com","password":"Wrong1!x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, bad.Body.String(), unknown.Body.String())

	rec = env.do(http.MethodPost, "/auth/login", `{"email":"ann@example.com","password":"Passw0rd!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, rec)
	assert.Equal(t, user.ID, login.User.ID)

	p := testutil.SeedProduct(t, env.db, "Pen", 1.25)
	rec = env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(p.ID)+`,"quantity":4}]}`, login.Token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, user.ID, decode[models.OrderWithItems](t, rec).UserID)
}

func TestAuth_RegisterRejectsOverlongPassword(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	password := strings.Repeat("a", 70) + "A1!"

	rec := env.do(http.MethodPost, "/auth/register", `{"email":"ann@example.com","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":false,"errors":[{"field":"password","message":"Must be at most 72 characters long"}]}`, rec.Body.String())
	assert.Zero(t, env.count(&models.User{}))
}

func TestCreateOrder_DeletedUserTokenIsUnauthorized(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	u := testutil.SeedUser(t, env.db, "gone@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, env.db, "Pen", 1)
	tok := env.token(u)
	require.NoError(t, env.db.Delete(&models.User{}, u.ID).Error)

	rec := env.do(http.MethodPost, "/orders", `{"items":[{"productId":`+itoa(p.ID)+`,"quantity":1}]}`, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"User not authenticated."}`, rec.Body.String())
	assert.Zero(t, env.count(&models.Order{}))
}

func TestAuth_RateLimited(t *testing.T) {
	limiter := ratelimit.Middleware(ratelimit.NewMemoryStore(ratelimit.Policy{Max: 1, Window: time.Hour}), "Too many login/register attempts")
	env := newTestEnv(t, envOptions{authLimiter: limiter})
	body := `{"email":"ann@example.com","password":"Passw0rd!"}`

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/auth/login", body, "").Code)
	rec := env.do(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/products", "", "").Code)
}

func TestStoreTimeoutIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, envOptions{storeTimeout: time.Nanosecond})
	rec := env.do(http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"Service temporarily unavailable, please retry."}`, rec.Body.String())
}

func TestUnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rec := env.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
