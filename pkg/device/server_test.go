package device

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"edabridge/pkg/enervent"
	"edabridge/pkg/protocol/modbus/runtime"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	InstallHandler(engine.Group("/"), m)
	return engine
}

func serve(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	return body.Errors[0].Code
}

func TestRoot(t *testing.T) {
	m, _ := newUnit(t, versionEDA, 0)
	w := serve(newRouter(m), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edabridge", w.Body.String())
}

func TestSummaryHandler(t *testing.T) {
	m, sim := newUnit(t, versionMD, 0)
	sim.SetCoils(2, true)
	w := serve(newRouter(m), http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{"modes", "readings", "settings", "deviceInformation", "deviceState", "alarmSummary", "activeAlarm"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "null", string(body["activeAlarm"]))

	var modes map[string]bool
	require.NoError(t, json.Unmarshal(body["modes"], &modes))
	assert.True(t, modes["longAway"])
	assert.Contains(t, modes, "eco")
}

func TestModeHandlers(t *testing.T) {
	m, sim := newUnit(t, versionMD, 0)
	sim.SetCoils(1, true)
	router := newRouter(m)

	w := serve(router, http.MethodGet, "/mode/away", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":true}`, w.Body.String())

	w = serve(router, http.MethodPost, "/mode/manualBoost", `{"active":"true"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":true}`, w.Body.String())
	assert.False(t, sim.Coil(1))
	assert.True(t, sim.Coil(10))

	w = serve(router, http.MethodPost, "/mode/manualBoost", `{"active":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":false}`, w.Body.String())

	w = serve(router, http.MethodPost, "/mode/cookerHood", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":false}`, w.Body.String())
}

func TestSettingHandler(t *testing.T) {
	m, sim := newUnit(t, versionMD, 0)
	w := serve(newRouter(m), http.MethodPost, "/setting/temperatureTarget/22.5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint16(225), sim.Register(135))

	var body struct {
		Settings map[string]interface{} `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 22.5, body.Settings["temperatureTarget"])
}

func TestAlarmHandlers(t *testing.T) {
	m, sim := newUnit(t, versionEDA, 0)
	sim.SetRegisters(enervent.RegisterNewestAlarm, alarmSlot(12, 2)...)
	router := newRouter(m)

	w := serve(router, http.MethodPost, "/alarm/acknowledge", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint16(1), sim.Register(enervent.RegisterAlarmAcknowledge))

	w = serve(router, http.MethodGet, "/alarm/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		AlarmHistory []struct {
			Name  string `json:"name"`
			State int    `json:"state"`
		} `json:"alarmHistory"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.AlarmHistory)
	assert.Equal(t, "EmergencyStop", body.AlarmHistory[0].Name)
}

func TestHandlerErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		version uint16
		method  string
		path    string
		body    string
		fail    error
		status  int
		code    int
	}{
		{name: "unknown mode", version: versionEDA, method: http.MethodGet, path: "/mode/turbo", status: http.StatusNotFound, code: 10003},
		{name: "unknown setting", version: versionEDA, method: http.MethodPost, path: "/setting/humidityTarget/40", status: http.StatusNotFound, code: 10003},
		{name: "unsupported mode", version: versionEDA, method: http.MethodPost, path: "/mode/eco", body: `{"active":true}`, status: http.StatusUnprocessableEntity, code: 10004},
		{name: "unsupported setting", version: versionLegacyEDA, method: http.MethodPost, path: "/setting/coolingAllowed/true", status: http.StatusUnprocessableEntity, code: 10004},
		{name: "out of range", version: versionMD, method: http.MethodPost, path: "/setting/temperatureTarget/35", status: http.StatusBadRequest, code: 10005},
		{name: "invalid value", version: versionMD, method: http.MethodPost, path: "/setting/temperatureTarget/warm", status: http.StatusBadRequest, code: 10005},
		{name: "malformed body", version: versionMD, method: http.MethodPost, path: "/mode/away", body: `{"active":`, status: http.StatusBadRequest, code: 10001},
		{name: "undecodable active", version: versionMD, method: http.MethodPost, path: "/mode/away", body: `{"active":"maybe"}`, status: http.StatusBadRequest, code: 10002},
		{name: "bus failure", version: versionMD, method: http.MethodGet, path: "/summary", fail: errors.New("request timed out"), status: http.StatusBadGateway, code: 10006},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sim := newUnit(t, tt.version, 0)
			if tt.fail != nil {
				sim.Fail(runtime.OperationReadCoils, tt.fail)
			}
			w := serve(newRouter(m), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}
