package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{nil, "null"},
		{Null{}, "null"},
		{String("TRP-BI-FLAV"), "TRP-BI-FLAV"},
		{Int(42), "42"},
		{Float(80), "80"},
		{Float(9.7), "9.7"},
		{Bool(true), "true"},
		{NewDate(2024, time.March, 1), "2024-03-01"},
		{NewTime(time.Date(2024, 3, 1, 12, 0, 0, 5, time.UTC)), "2024-03-01T12:00:00.000000005Z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.v))
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(Null{}, String("")))

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err == nil {
		ts := time.Date(2024, 3, 1, 13, 0, 0, 0, berlin)
		assert.True(t, Equal(Time(ts), NewTime(ts)))
	}
}

func TestParseTime_RoundTrip(t *testing.T) {
	ts := NewTime(time.Date(2024, 3, 1, 12, 30, 0, 123, time.UTC))
	parsed, err := ParseTime(ts.String())
	require.NoError(t, err)
	assert.Equal(t, ts, parsed)

	_, err = ParseTime("noon")
	assert.Error(t, err)
}

func TestTimeText_SortsChronologically(t *testing.T) {
	early := NewTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	late := NewTime(time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC))
	assert.Less(t, early.String(), late.String())
}

func TestSQLRoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		v    Value
	}{
		{KindString, String("toluene")},
		{KindInt, Int(7)},
		{KindFloat, Float(0.25)},
		{KindBool, Bool(true)},
		{KindBool, Bool(false)},
		{KindDate, NewDate(2023, time.December, 24)},
		{KindTime, NewTime(time.Date(2023, 12, 24, 18, 0, 0, 0, time.UTC))},
		{KindFloat, Null{}},
	}
	for _, tt := range tests {
		got, err := FromSQL(tt.kind, SQL(tt.v))
		require.NoError(t, err)
		assert.True(t, Equal(tt.v, got), "%s: %v != %v", tt.kind, tt.v, got)
	}
}

func TestFromSQL_Conversions(t *testing.T) {
	v, err := FromSQL(KindFloat, int64(80))
	require.NoError(t, err)
	assert.Equal(t, Float(80), v)

	v, err = FromSQL(KindString, []byte("water"))
	require.NoError(t, err)
	assert.Equal(t, String("water"), v)

	_, err = FromSQL(KindInt, float64(1.5))
	assert.Error(t, err)

	_, err = FromSQL(KindInt, "seven")
	assert.Error(t, err)
}

func TestMarshalJSON(t *testing.T) {
	out, err := json.Marshal(map[string]Value{
		"date":  NewDate(2024, time.March, 1),
		"smile": Null{},
		"temp":  Float(80),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-01","smile":null,"temp":80}`, string(out))
}
