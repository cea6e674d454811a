package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, reasonsKind, tokenTTL = false, "", 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPermissionsCommand(t *testing.T) {
	out, err := execute(t, "permissions", "--json")
	require.NoError(t, err)

	var table map[permission.Role][]permission.Action
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	assert.Contains(t, table[permission.RoleSystem], permission.ActionTransactionRelease)
	assert.NotContains(t, table[permission.RoleReviewer], permission.ActionTransactionRelease)

	out, err = execute(t, "permissions")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ROLE"))
}

func TestReasonsCommand(t *testing.T) {
	out, err := execute(t, "reasons", "--kind", "transaction")
	require.NoError(t, err)
	assert.Contains(t, out, "chargeback")
	assert.NotContains(t, out, "meets_criteria")

	_, err = execute(t, "reasons", "--kind", "invoice")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-value"
	t.Setenv("COSELECTION_AUTH_SECRET", secret)

	out, err := execute(t, "token", "--config", "", "--env-file", "", "--id", "u-9", "--role", "finance", "--name", "Fran")
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(secret, "coselection", time.Hour)
	require.NoError(t, err)
	actor, err := tokens.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, permission.Actor{ID: "u-9", Role: permission.RoleFinance, DisplayName: "Fran"}, actor)

	_, err = execute(t, "token", "--config", "", "--env-file", "", "--id", "u-9", "--role", "owner")
	assert.ErrorContains(t, err, "unknown role")
}
