package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageRequest_Validate(t *testing.T) {
	lat, lon := 35.658, 139.701

	tests := []struct {
		name    string
		req     MessageRequest
		wantErr bool
	}{
		{"message only", MessageRequest{Message: "hi"}, false},
		{"with point", MessageRequest{Message: "hi", Lat: &lat, Lon: &lon}, false},
		{"blank message", MessageRequest{Message: "   "}, true},
		{"lat without lon", MessageRequest{Message: "hi", Lat: &lat}, true},
		{"lon without lat", MessageRequest{Message: "hi", Lon: &lon}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessageRequest_TargetsPoint(t *testing.T) {
	yes, no := true, false

	assert.False(t, (&MessageRequest{}).TargetsPoint())
	assert.False(t, (&MessageRequest{IsPoint: &no}).TargetsPoint())
	assert.True(t, (&MessageRequest{IsPoint: &yes}).TargetsPoint())
}

func TestQueryFilter_LenNil(t *testing.T) {
	var f *QueryFilter
	assert.Zero(t, f.Len())
}

func TestSearchIntent_IsEmpty(t *testing.T) {
	assert.True(t, SearchIntent{}.IsEmpty())

	no := false
	assert.False(t, SearchIntent{RequireMaxPrice: &no}.IsEmpty())
}
