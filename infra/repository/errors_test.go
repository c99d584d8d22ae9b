package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"duplicate", gorm.ErrDuplicatedKey, domain.ErrAlreadyExists},
		{"wrapped duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), domain.ErrAlreadyExists},
		{"not found", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{"foreign key", gorm.ErrForeignKeyViolated, domain.ErrNotFound},
		{"check", gorm.ErrCheckConstraintViolated, domain.ErrValidation},
		{"unmapped", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapGormErrorToDomain(tt.in))
		})
	}
}

func TestMapNotFound(t *testing.T) {
	assert.Equal(t, farm.ErrFarmNotFound, mapNotFound(gorm.ErrRecordNotFound, farm.ErrFarmNotFound))
	assert.Equal(t, domain.ErrAlreadyExists, mapNotFound(gorm.ErrDuplicatedKey, farm.ErrFarmNotFound))
}
