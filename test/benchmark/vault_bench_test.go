package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/TheMichaelB/enpass/internal/config"
	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/vault"
	"github.com/TheMichaelB/enpass/test/testutil"
)

func openItems(b *testing.B, count int) (*vault.Items, *testutil.Vault) {
	b.Helper()

	specs := make([]testutil.ItemSpec, count)
	for i := range specs {
		specs[i] = testutil.ItemSpec{
			Title: fmt.Sprintf("Item %d", i),
			Fields: []testutil.FieldSpec{
				{Type: models.FieldUsername, Value: fmt.Sprintf("user%d@example.com", i), Order: 1},
				{Type: models.FieldPassword, Value: "correct-horse-battery", Order: 2},
				{Type: "url", Value: "https://example.com", Order: 3},
				{Type: models.FieldTOTP, Value: "JBSWY3DPEHPK3PXP", Order: 4},
			},
		}
	}
	v := testutil.BuildVault(b, specs...)

	h, err := vault.Locate(v.DBPath, events.Discard)
	if err != nil {
		b.Fatal(err)
	}

	session, err := vault.NewUnlocker(config.DefaultConfig().Store, events.Discard).
		Unlock(context.Background(), h, []byte(testutil.Passphrase))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = session.Close() })

	return session.Items(), v
}

func BenchmarkUnlock(b *testing.B) {
	v := testutil.BuildVault(b, testutil.DefaultItems()...)
	h, err := vault.Locate(v.DescriptorPath, events.Discard)
	if err != nil {
		b.Fatal(err)
	}
	unlocker := vault.NewUnlocker(config.DefaultConfig().Store, events.Discard)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		session, err := unlocker.Unlock(context.Background(), h, []byte(testutil.Passphrase))
		if err != nil {
			b.Fatal(err)
		}
		_ = session.Close()
	}
}

func BenchmarkList(b *testing.B) {
	for _, count := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("%d_items", count), func(b *testing.B) {
			items, _ := openItems(b, count)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := items.List(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPassword(b *testing.B) {
	items, v := openItems(b, 100)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		id := v.Items[i%len(v.Items)].ID
		if _, err := items.Password(ctx, id); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDump(b *testing.B) {
	items, v := openItems(b, 100)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		id := v.Items[i%len(v.Items)].ID
		if _, err := items.Dump(ctx, id); err != nil {
			b.Fatal(err)
		}
	}
}
