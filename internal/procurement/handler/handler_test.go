package handler

import (
	"bytes"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/bitfantasy/procurement/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const missingID = "6c1f4b1e-0000-4000-8000-000000000000"

func TestMain(m *testing.M) {
	os.Exit(testutil.Main(m))
}

func setupProcurementTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	svcs := service.NewServices(db, repository.NewRepositories(db), nil, 0, metrics.New("test"), zap.NewNop())
	h := NewHandlers(svcs)

	router := testutil.SetupRouter()
	h.RegisterRoutes(router.Group("/api"))

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func createVendor(t *testing.T, env *testutil.TestEnv, name, email string, extra map[string]interface{}) string {
	t.Helper()
	body := map[string]interface{}{
		"vendorName":    name,
		"contactPerson": "Rajesh Kumar",
		"email":         email,
		"phoneNumber":   "+91-9876543210",
		"paymentTerms":  30,
		"status":        "ACTIVE",
	}
	for k, v := range extra {
		body[k] = v
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/vendors", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["id"].(string)
}

func createOrder(t *testing.T, env *testutil.TestEnv, vendorID string, qty, price float64) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{
		"vendorId": vendorID,
		"items": []map[string]interface{}{
			{"description": "Steel Rods (10mm)", "quantity": qty, "unitPrice": price},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)
}

func approve(t *testing.T, env *testutil.TestEnv, orderID string) {
	t.Helper()
	w := testutil.DoRequest(env.Router, "PATCH", "/api/purchase-orders/"+orderID+"/status", map[string]string{"status": "APPROVED"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func payment(orderID string, amount float64) map[string]interface{} {
	return map[string]interface{}{
		"purchaseOrderId": orderID,
		"paymentDate":     "2024-06-01T00:00:00.000Z",
		"amountPaid":      amount,
		"paymentMethod":   "UPI",
		"notes":           "Partial payment - 50% advance",
	}
}

func TestVendorHandler_CreateAndConflict(t *testing.T) {
	env := setupProcurementTest(t)

	id := createVendor(t, env, "Tech Solutions Ltd", "rajesh@techsolutions.com", nil)
	assert.NotEmpty(t, id)

	w := testutil.DoRequest(env.Router, "POST", "/api/vendors", map[string]interface{}{
		"vendorName": "Tech Solutions Ltd", "contactPerson": "x", "email": "new@example.com",
		"phoneNumber": "1", "paymentTerms": 30, "status": "ACTIVE",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	resp := testutil.ParseResponse(w)
	assert.Equal(t, float64(40900), resp["code"])
	assert.Equal(t, "Vendor name or email already exists", resp["message"])

	w = testutil.DoRequest(env.Router, "GET", "/api/vendors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ParseList(w), 1)
}

func TestVendorHandler_Validation(t *testing.T) {
	env := setupProcurementTest(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown field", map[string]interface{}{
			"vendorName": "A", "contactPerson": "x", "email": "a@example.com", "phoneNumber": "1", "rating": 5,
		}},
		{"bad email", map[string]interface{}{
			"vendorName": "A", "contactPerson": "x", "email": "not-an-email", "phoneNumber": "1",
		}},
		{"bad payment terms", map[string]interface{}{
			"vendorName": "A", "contactPerson": "x", "email": "a@example.com", "phoneNumber": "1", "paymentTerms": 20,
		}},
		{"bad status", map[string]interface{}{
			"vendorName": "A", "contactPerson": "x", "email": "a@example.com", "phoneNumber": "1", "status": "BLOCKED",
		}},
		{"missing name", map[string]interface{}{
			"contactPerson": "x", "email": "a@example.com", "phoneNumber": "1",
		}},
		{"malformed json", `{"vendorName":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.DoRequest(env.Router, "POST", "/api/vendors", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "Validation failed", testutil.ParseResponse(w)["message"])
		})
	}
}

func TestVendorHandler_GetAndUpdate(t *testing.T) {
	env := setupProcurementTest(t)

	a := createVendor(t, env, "Vendor A", "a@example.com", nil)
	createVendor(t, env, "Vendor B", "b@example.com", nil)

	w := testutil.DoRequest(env.Router, "GET", "/api/vendors/"+a, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Vendor A", testutil.ParseResponse(w)["vendorName"])

	w = testutil.DoRequest(env.Router, "GET", "/api/vendors/"+missingID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/vendors/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "PATCH", "/api/vendors/"+a, map[string]interface{}{"email": "b@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "PATCH", "/api/vendors/"+a, map[string]interface{}{"status": "INACTIVE", "paymentTerms": 60})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.ParseResponse(w)
	assert.Equal(t, "INACTIVE", resp["status"])
	assert.Equal(t, float64(60), resp["paymentTerms"])
	assert.Equal(t, "a@example.com", resp["email"])

	w = testutil.DoRequest(env.Router, "PATCH", "/api/vendors/"+missingID, map[string]interface{}{"phoneNumber": "2"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPOHandler_Create(t *testing.T) {
	env := setupProcurementTest(t)
	vendorID := createVendor(t, env, "Tech Solutions Ltd", "rajesh@techsolutions.com", map[string]interface{}{"paymentTerms": 15})

	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{
		"vendorId": vendorID,
		"items": []map[string]interface{}{
			{"description": "Laptop Dell XPS 15", "quantity": 5, "unitPrice": 85000},
			{"description": "Wireless Mouse", "quantity": 10, "unitPrice": 1200},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	po := testutil.ParseResponse(w)
	assert.Equal(t, float64(437000), po["totalAmount"])
	assert.Equal(t, "DRAFT", po["status"])
	assert.Regexp(t, `^PO-\d{8}-001$`, po["poNumber"])
	assert.Len(t, po["items"], 2)
	vendor := po["vendor"].(map[string]interface{})
	assert.Equal(t, vendorID, vendor["id"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, po["dueDate"])
}

func TestPOHandler_CreateFractionalQuantity(t *testing.T) {
	env := setupProcurementTest(t)
	vendorID := createVendor(t, env, "Metro Hardware", "orders@metrohw.in", nil)

	po := createOrder(t, env, vendorID, 2.5, 380.40)
	assert.Equal(t, 951.0, po["totalAmount"])
	items := po["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, 2.5, item["quantity"])
	assert.Equal(t, 951.0, item["lineTotal"])

	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{
		"vendorId": vendorID,
		"items": []map[string]interface{}{
			{"description": "Copper wire (kg)", "quantity": -0.5, "unitPrice": 380.40},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPOHandler_CreateFailures(t *testing.T) {
	env := setupProcurementTest(t)
	inactive := createVendor(t, env, "Dormant Ltd", "dormant@example.com", map[string]interface{}{"status": "INACTIVE"})

	items := []map[string]interface{}{{"description": "Pens", "quantity": 1, "unitPrice": 10}}

	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{"vendorId": inactive, "items": items})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot create PO for inactive vendor", testutil.ParseResponse(w)["message"])

	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{"vendorId": missingID, "items": items})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{"vendorId": inactive, "items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{
		"vendorId": inactive,
		"items":    []map[string]interface{}{{"description": "Pens", "quantity": -1, "unitPrice": 10}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "items[0].quantity")

	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", map[string]interface{}{"vendorId": "abc", "items": items})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPOHandler_ListAndStatus(t *testing.T) {
	env := setupProcurementTest(t)
	a := createVendor(t, env, "Vendor A", "a@example.com", nil)
	b := createVendor(t, env, "Vendor B", "b@example.com", nil)

	first := createOrder(t, env, a, 2, 100)
	createOrder(t, env, b, 1, 50)
	id := first["id"].(string)

	w := testutil.DoRequest(env.Router, "PATCH", "/api/purchase-orders/"+id+"/status", map[string]string{"status": "FULLY_PAID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot transition from DRAFT to FULLY_PAID", testutil.ParseResponse(w)["message"])

	w = testutil.DoRequest(env.Router, "PATCH", "/api/purchase-orders/"+id+"/status", map[string]string{"status": "CLOSED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	approve(t, env, id)

	w = testutil.DoRequest(env.Router, "PATCH", "/api/purchase-orders/"+id+"/status", map[string]string{"status": "APPROVED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "PATCH", "/api/purchase-orders/"+missingID+"/status", map[string]string{"status": "APPROVED"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders?status=APPROVED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := testutil.ParseList(w)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders?vendorId="+b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ParseList(w), 1)

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ParseList(w), 2)

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders?status=OPEN", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders/"+missingID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_Flow(t *testing.T) {
	env := setupProcurementTest(t)
	vendorID := createVendor(t, env, "Vendor A", "a@example.com", nil)
	po := createOrder(t, env, vendorID, 1, 1000)
	id := po["id"].(string)
	approve(t, env, id)

	w := testutil.DoRequest(env.Router, "POST", "/api/payments", payment(id, 1000.01))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment amount exceeds outstanding balance of 1000.00", testutil.ParseResponse(w)["message"])

	w = testutil.DoRequest(env.Router, "POST", "/api/payments", payment(id, 400))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := testutil.ParseResponse(w)
	assert.Equal(t, float64(400), created["amountPaid"])
	assert.Equal(t, "2024-06-01", created["paymentDate"])
	assert.Regexp(t, `^PAY-\d{8}-001$`, created["paymentReference"])
	order := created["purchaseOrder"].(map[string]interface{})
	assert.Equal(t, "PARTIALLY_PAID", order["status"])
	assert.Equal(t, "Vendor A", order["vendor"].(map[string]interface{})["vendorName"])

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders/"+id+"/outstanding", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(600), testutil.ParseResponse(w)["outstanding"])

	w = testutil.DoRequest(env.Router, "POST", "/api/payments", payment(id, 600))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/purchase-orders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FULLY_PAID", testutil.ParseResponse(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/payments", payment(id, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payments := testutil.ParseList(w)
	require.Len(t, payments, 2)

	w = testutil.DoRequest(env.Router, "GET", "/api/payments/"+payments[0]["id"].(string), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/payments/"+missingID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_Validation(t *testing.T) {
	env := setupProcurementTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/payments", payment(missingID, 10))
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := []map[string]interface{}{
		{"purchaseOrderId": missingID, "paymentDate": "01/06/2024", "amountPaid": 10, "paymentMethod": "UPI"},
		{"purchaseOrderId": missingID, "paymentDate": "2024-06-01", "amountPaid": -5, "paymentMethod": "UPI"},
		{"purchaseOrderId": missingID, "paymentDate": "2024-06-01", "amountPaid": 10, "paymentMethod": "BITCOIN"},
		{"purchaseOrderId": "nope", "paymentDate": "2024-06-01", "amountPaid": 10, "paymentMethod": "UPI"},
	}
	for _, body := range bad {
		w := testutil.DoRequest(env.Router, "POST", "/api/payments", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestAnalyticsHandler(t *testing.T) {
	env := setupProcurementTest(t)
	vendorID := createVendor(t, env, "Vendor A", "a@example.com", nil)
	createVendor(t, env, "Vendor Without Orders", "idle@example.com", nil)

	first := createOrder(t, env, vendorID, 1, 600)
	second := createOrder(t, env, vendorID, 1, 400)
	approve(t, env, first["id"].(string))
	approve(t, env, second["id"].(string))

	w := testutil.DoRequest(env.Router, "POST", "/api/payments", payment(first["id"].(string), 200))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = testutil.DoRequest(env.Router, "POST", "/api/payments", payment(second["id"].(string), 400))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/analytics/vendor-outstanding", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := testutil.ParseList(w)
	require.Len(t, rows, 1)
	assert.Equal(t, vendorID, rows[0]["vendorId"])
	assert.Equal(t, float64(1000), rows[0]["totalAmount"])
	assert.Equal(t, float64(600), rows[0]["totalPaid"])
	assert.Equal(t, float64(400), rows[0]["outstanding"])

	w = testutil.DoRequest(env.Router, "GET", "/api/analytics/payment-aging", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"0-30":0,"31-60":0,"61-90":0,"90+":0}`, w.Body.String())
}

func TestPOHandler_Export(t *testing.T) {
	env := setupProcurementTest(t)
	vendorID := createVendor(t, env, "Vendor A", "a@example.com", nil)
	createOrder(t, env, vendorID, 2, 250)
	createOrder(t, env, vendorID, 1, 100)

	w := testutil.DoRequest(env.Router, "GET", "/api/purchase-orders/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/vnd.openxmlformats"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Purchase Orders")
	require.NoError(t, err)
	// 表头 + 2 行数据 + 汇总
	require.Len(t, rows, 4)
	assert.Equal(t, "PO Number", rows[0][0])
	assert.Equal(t, "Vendor A", rows[1][1])
	assert.Equal(t, "Total", rows[3][0])
}
