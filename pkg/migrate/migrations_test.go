package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/vendorledger-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestVendorMigrationGuardsBalances(t *testing.T) {
	assertContains(t, readMigration(t, "create_vendors"), []string{
		"CREATE TABLE IF NOT EXISTS vendors",
		"CHECK (available_balance >= 0)",
		"CHECK (pending_balance >= 0)",
		"CHECK (withdrawn_amount >= 0)",
		"DROP TABLE IF EXISTS vendors",
	})
}

func TestPayoutMigrationEnforcesSingleOpenRequest(t *testing.T) {
	assertContains(t, readMigration(t, "create_payouts"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_payouts_vendor_requested ON payouts (vendor_id) WHERE status = 'requested'",
		"FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE RESTRICT",
		"CHECK (amount > 0)",
	})
}

func TestCanonicalVendorMigrationBackfillsAndDropsLegacyColumn(t *testing.T) {
	assertContains(t, readMigration(t, "canonical_order_item_vendor"), []string{
		"ADD COLUMN IF NOT EXISTS vendor_id UUID",
		"UPDATE order_items SET vendor_id = vendor WHERE vendor_id IS NULL",
		"DROP COLUMN IF EXISTS vendor;",
		"-- +goose Down",
	})
}
