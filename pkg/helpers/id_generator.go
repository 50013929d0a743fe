package helpers

import (
	"github.com/google/uuid"
)

// IDGenerator generates opaque transaction identifiers
type IDGenerator struct{}

// NewIDGenerator creates a new ID generator
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GenerateUUID generates a UUID v4
func (g *IDGenerator) GenerateUUID() string {
	return uuid.New().String()
}
