// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKRMobile(t *testing.T) {
	valid := []string{
		"010-1234-5678",
		"01012345678",
		"011-123-4567",
		"019-9999-0000",
	}
	for _, phone := range valid {
		assert.True(t, IsKRMobile(phone), phone)
	}

	invalid := []string{
		"02-1234-5678",   // landline
		"010-12-5678",    // middle too short
		"010-12345-6789", // middle too long
		"1012345678",     // missing leading zero
		"010-1234-567",   // tail too short
		"",
	}
	for _, phone := range invalid {
		assert.False(t, IsKRMobile(phone), phone)
	}
}

func TestValidateStructKRMobileTag(t *testing.T) {
	type form struct {
		Phone string `validate:"required,kr_mobile"`
	}

	assert.NoError(t, ValidateStruct(&form{Phone: "010-1234-5678"}))

	err := ValidateStruct(&form{Phone: "02-1234-5678"})
	assert.Error(t, err)

	errs := GetValidationErrors(err)
	assert.Len(t, errs, 1)
	assert.Equal(t, "kr_mobile", errs[0].Tag)
	assert.Equal(t, "Enter a valid mobile number (01X-XXXX-XXXX)", errs[0].Message)
}

func TestGetValidationErrorsOnNil(t *testing.T) {
	assert.Empty(t, GetValidationErrors(nil))
}
