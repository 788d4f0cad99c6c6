package lint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlanon/internal/config"
)

func TestCheckFlagsFieldRuleNamingMissingColumn(t *testing.T) {
	cfg, err := config.NewParser("tables = { `users` = { `email` = fixed null `ghost` = fixed null } }").Parse()
	require.NoError(t, err)

	dump := "CREATE TABLE `users` (\n" +
		"  `id` int(11) NOT NULL,\n" +
		"  `email` varchar(255) NOT NULL\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n"

	findings, err := Check(strings.NewReader(dump), cfg)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "users", findings[0].Table)
	assert.Equal(t, "ghost", findings[0].Field)
}

func TestCheckFindsNothingWhenAllColumnsExist(t *testing.T) {
	cfg, err := config.NewParser("tables = { `users` = { `email` = fixed null } }").Parse()
	require.NoError(t, err)

	dump := "CREATE TABLE `users` (\n" +
		"  `id` int(11) NOT NULL,\n" +
		"  `email` varchar(255) NOT NULL\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n"

	findings, err := Check(strings.NewReader(dump), cfg)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckSkipsUnknownTables(t *testing.T) {
	cfg, err := config.NewParser("tables = { `orders` = { `total` = fixed null } }").Parse()
	require.NoError(t, err)

	dump := "CREATE TABLE `users` (\n  `id` int(11) NOT NULL\n) ENGINE=InnoDB;\n"

	findings, err := Check(strings.NewReader(dump), cfg)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckSkipsRegexTables(t *testing.T) {
	cfg, err := config.NewParser("tables = { regex `^shard_\\d+$` = { `email` = fixed null } }").Parse()
	require.NoError(t, err)

	dump := "CREATE TABLE `shard_1` (\n  `id` int(11) NOT NULL\n) ENGINE=InnoDB;\n"

	findings, err := Check(strings.NewReader(dump), cfg)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckIgnoresTruncatedTables(t *testing.T) {
	cfg, err := config.NewParser("tables = { `logs` = truncate }").Parse()
	require.NoError(t, err)

	dump := "CREATE TABLE `logs` (\n  `id` int(11) NOT NULL\n) ENGINE=InnoDB;\n"

	findings, err := Check(strings.NewReader(dump), cfg)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
