package application

import (
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	PasscodeCost = bcrypt.MinCost
	os.Exit(m.Run())
}
