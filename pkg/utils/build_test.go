package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/mod/semver"
)

func TestVersionIsSemantic(t *testing.T) {
	fmt.Println(len(Version))
	assert.Truef(t, semver.IsValid(Version), "Version %s is not a valid semantic version", Version)
}

func TestCompatibleWith(t *testing.T) {
	prevVersion := Version
	defer func() { Version = prevVersion }()

	Version = "v1.4.0"
	assert.True(t, CompatibleWith("v1.0.0"))
	assert.True(t, CompatibleWith("v1.4.0"))
	assert.False(t, CompatibleWith("v2.0.0"))
	assert.False(t, CompatibleWith("not-a-version"))
}
