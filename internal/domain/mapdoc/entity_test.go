package mapdoc

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, RegisterValidations(v))
	return v
}

func TestMarker_CoordinatePrecedence(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Coordinates
	}{
		{"object", `{"type":"house","coordinates":{"lat":1.5,"lng":-2}}`, Coordinates{1.5, -2}},
		{"array", `{"type":"house","coordinates":[3,4]}`, Coordinates{3, 4}},
		{"top level", `{"type":"house","lat":5,"lng":6}`, Coordinates{5, 6}},
		{"object wins over top level", `{"type":"house","coordinates":{"lat":1,"lng":2},"lat":9,"lng":9}`, Coordinates{1, 2}},
		{"array wins over top level", `{"type":"house","coordinates":[1,2],"lat":9,"lng":9}`, Coordinates{1, 2}},
		{"null falls through", `{"type":"house","coordinates":null,"lat":7,"lng":8}`, Coordinates{7, 8}},
		{"partial object falls through", `{"type":"house","coordinates":{"lat":1},"lat":7,"lng":8}`, Coordinates{7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Marker
			require.NoError(t, json.Unmarshal([]byte(tt.json), &m))
			assert.Equal(t, tt.want, m.Coordinates)
			assert.Equal(t, TypeHouse, m.Type)
		})
	}
}

func TestMarker_InvalidCoordinates(t *testing.T) {
	for _, body := range []string{
		`{"id":"m_1","type":"house"}`,
		`{"type":"house","coordinates":[1]}`,
		`{"type":"house","coordinates":[1,2,3]}`,
		`{"type":"house","coordinates":"1,2"}`,
		`{"type":"house","lat":1}`,
	} {
		var m Marker
		err := json.Unmarshal([]byte(body), &m)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, body)
	}
}

func TestMarker_MarshalsCanonicalShape(t *testing.T) {
	var m Marker
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m_1","name":"Saloon","type":"shop","coordinates":[10,20]}`), &m))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m_1","name":"Saloon","type":"shop","status":"","description":"","coordinates":{"lat":10,"lng":20}}`, string(out))
}

func TestDocument_Validation(t *testing.T) {
	v := newValidator(t)

	valid := &Document{Version: 1, Markers: []Marker{{ID: "m_1", Type: TypeGovernment}}}
	assert.NoError(t, v.Struct(valid))

	badType := &Document{Version: 1, Markers: []Marker{{Type: "saloon"}}}
	assert.Error(t, v.Struct(badType))

	badVersion := &Document{Version: 2, Markers: []Marker{}}
	assert.Error(t, v.Struct(badVersion))

	longName := &Document{Version: 1, Markers: []Marker{{Type: TypeShop, Name: strings.Repeat("x", 201)}}}
	assert.Error(t, v.Struct(longName))
}

func TestFiniteValidation(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Var(1.5, "finite"))
	assert.Error(t, v.Var("1.5", "finite"))
}

func TestDocument_NormalizeAndTouch(t *testing.T) {
	d := &Document{}
	d.Normalize()
	assert.Equal(t, CurrentVersion, d.Version)
	assert.NotNil(t, d.Markers)

	d.Touch(time.Date(2025, 3, 1, 12, 30, 0, 5_000_000, time.FixedZone("x", 3600)))
	assert.Equal(t, "2025-03-01T11:30:00.005Z", d.UpdatedAt)
}

func TestEncode(t *testing.T) {
	body, err := Encode(Empty())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"version\": 1,\n  \"updatedAt\": \"\",\n  \"markers\": []\n}", string(body))

	doc := &Document{Version: 1, Markers: []Marker{{Type: TypeShop, Name: "<Saloon & Co>", Coordinates: Coordinates{1, 2}}}}
	body, err = Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<Saloon & Co>")
}

func TestETag(t *testing.T) {
	a := ETag([]byte("a"))
	assert.Equal(t, a, ETag([]byte("a")))
	assert.NotEqual(t, a, ETag([]byte("b")))
	assert.True(t, strings.HasPrefix(a, `"`) && strings.HasSuffix(a, `"`))
	assert.Len(t, a, 66)

	body, _ := Encode(Empty())
	assert.Equal(t, ETag(body), EmptyETag())
}

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"rdo_main", "a", "map-2", "0"} {
		assert.True(t, ValidSlug(s), s)
	}
	for _, s := range []string{"", "_x", "-x", "Main", "a/b", "../etc", strings.Repeat("a", 65)} {
		assert.False(t, ValidSlug(s), s)
	}
}
