package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"3", 3},
		{" 2.5 ", 2.5},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-4", -4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.in), "input %q", tt.in)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var body struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
		D Amount `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.5, "b": "40", "c": "lots", "d": null}`), &body))

	assert.Equal(t, Amount(1.5), body.A)
	assert.Equal(t, Amount(40), body.B)
	assert.Equal(t, Amount(0), body.C)
	assert.Equal(t, Amount(0), body.D)
}

func TestAmount_NonNegative(t *testing.T) {
	assert.Equal(t, 0.0, Amount(-2).NonNegative())
	assert.Equal(t, 2.0, Amount(2).NonNegative())
}

func TestMaskAadhaar(t *testing.T) {
	assert.Equal(t, "XXXX XXXX 9012", MaskAadhaar("123456789012"))
	assert.Equal(t, "XXXX XXXX XXXX", MaskAadhaar("12"))
	assert.Equal(t, "XXXX XXXX XXXX", MaskAadhaar(""))
}

func TestImageStatus_String(t *testing.T) {
	assert.Equal(t, "Images Pending", PendingStatus().String())
	assert.Equal(t, "Verified (unique images)", ImageStatus{State: ImageVerified}.String())
	assert.Equal(t,
		"Suspicious: reused from owner A (role standard) | same image used for both roles",
		ImageStatus{
			State:   ImageSuspicious,
			Reasons: []string{"reused from owner A (role standard)", "same image used for both roles"},
		}.String(),
	)
}

func TestFarmer_CloneIsDeep(t *testing.T) {
	f := &Farmer{EFN: "EFN-IND-1", ImageStatus: ImageStatus{State: ImageSuspicious, Reasons: []string{"x"}}}
	cp := f.Clone()
	cp.ImageStatus.Reasons[0] = "y"
	cp.EFN = "other"

	assert.Equal(t, "x", f.ImageStatus.Reasons[0])
	assert.Equal(t, "EFN-IND-1", f.EFN)
}

func TestFarmer_ImageRefs(t *testing.T) {
	f := &Farmer{}
	assert.False(t, f.HasAllImages())

	f.SetImageRef(RoleStandard, "sha256:aa")
	assert.Equal(t, "sha256:aa", f.ImageRef(RoleStandard))
	assert.False(t, f.HasAllImages())

	f.SetImageRef(RoleCorner, "sha256:bb")
	assert.True(t, f.HasAllImages())
}

func TestParseImageRole(t *testing.T) {
	r, err := ParseImageRole(" Corner ")
	require.NoError(t, err)
	assert.Equal(t, RoleCorner, r)

	_, err = ParseImageRole("aerial")
	assert.Error(t, err)
}
