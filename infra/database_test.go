package infra

import (
	"testing"

	"github.com/barncase/barn/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewDBConnection_RequiresURL(t *testing.T) {
	for _, cnf := range []*config.DB{nil, {}, {Url: "memory://"}} {
		_, err := NewDBConnection(cnf, "test")
		assert.ErrorContains(t, err, "DATABASE_URL")
	}
}
