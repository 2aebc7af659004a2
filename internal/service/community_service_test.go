package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
)

func TestCreateCommunity(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "u1")
	u2 := env.register(t, "u2")

	c, err := env.community.CreateCommunity(ctx, u1, "  data-eng ", "Big data talk")
	requireNoErr(t, err)
	if c.Name != "data-eng" || c.CreatedByUserID != u1 {
		t.Fatalf("unexpected community %+v", c)
	}

	_, err = env.community.CreateCommunity(ctx, u2, "data-eng", "again")
	requireKind(t, err, pkg.KindConflict)

	// 名称区分大小写
	_, err = env.community.CreateCommunity(ctx, u2, "Data-Eng", "")
	requireNoErr(t, err)

	list, err := env.community.ListCommunities(ctx, 0, 0)
	requireNoErr(t, err)
	seen := 0
	for _, item := range list {
		if item.Name == "data-eng" {
			seen++
		}
	}
	if seen != 1 || len(list) != 2 {
		t.Fatalf("expected data-eng once among 2 communities, got %+v", list)
	}
	if list[0].ID > list[1].ID {
		t.Fatalf("list should be ordered by id ascending")
	}

	// 创建者不会自动成为成员
	if countMembers(t, env, c.ID, u1) != 0 {
		t.Fatal("creator must not be auto-enrolled")
	}
}

func TestCreateCommunityValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")

	cases := []struct {
		name  string
		actor uint64
		cname string
		desc  string
		kind  pkg.Kind
	}{
		{"anonymous", 0, "ok", "", pkg.KindUnauthorized},
		{"empty name", u, "   ", "", pkg.KindInvalidInput},
		{"long name", u, strings.Repeat("n", 81), "", pkg.KindInvalidInput},
		{"long description", u, "ok", strings.Repeat("d", 501), pkg.KindInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.community.CreateCommunity(ctx, tc.actor, tc.cname, tc.desc)
			requireKind(t, err, tc.kind)
		})
	}

	_, err := env.community.CreateCommunity(ctx, u, strings.Repeat("n", 80), strings.Repeat("d", 500))
	requireNoErr(t, err)
}

func TestUpdateCommunity(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	other := env.register(t, "other")

	a, err := env.community.CreateCommunity(ctx, owner, "alpha", "")
	requireNoErr(t, err)
	_, err = env.community.CreateCommunity(ctx, owner, "beta", "")
	requireNoErr(t, err)

	newName := "beta"
	_, err = env.community.UpdateCommunity(ctx, owner, a.ID, &newName, nil)
	requireKind(t, err, pkg.KindConflict)

	_, err = env.community.UpdateCommunity(ctx, other, a.ID, nil, nil)
	requireKind(t, err, pkg.KindForbidden)

	_, err = env.community.UpdateCommunity(ctx, owner, 9999, nil, nil)
	requireKind(t, err, pkg.KindNotFound)

	same := "alpha"
	desc := "updated"
	got, err := env.community.UpdateCommunity(ctx, owner, a.ID, &same, &desc)
	requireNoErr(t, err)
	if got.Name != "alpha" || got.Description != "updated" {
		t.Fatalf("unexpected update result %+v", got)
	}

	renamed := "gamma"
	got, err = env.community.UpdateCommunity(ctx, owner, a.ID, &renamed, nil)
	requireNoErr(t, err)
	if got.Name != "gamma" || got.CreatedByUserID != owner {
		t.Fatalf("unexpected rename result %+v", got)
	}
}

func TestJoinLeaveIdempotent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	member := env.register(t, "member")
	c, err := env.community.CreateCommunity(ctx, owner, "go", "")
	requireNoErr(t, err)

	changed, err := env.community.JoinCommunity(ctx, member, c.ID)
	requireNoErr(t, err)
	if !changed {
		t.Fatal("first join should change membership")
	}
	changed, err = env.community.JoinCommunity(ctx, member, c.ID)
	requireNoErr(t, err)
	if changed {
		t.Fatal("second join should be a no-op")
	}
	if n := countMembers(t, env, c.ID, member); n != 1 {
		t.Fatalf("expected one membership row, got %d", n)
	}

	changed, err = env.community.LeaveCommunity(ctx, member, c.ID)
	requireNoErr(t, err)
	if !changed {
		t.Fatal("leave should remove membership")
	}
	changed, err = env.community.LeaveCommunity(ctx, member, c.ID)
	requireNoErr(t, err)
	if changed {
		t.Fatal("leaving again should be a no-op")
	}

	_, err = env.community.JoinCommunity(ctx, member, 9999)
	requireKind(t, err, pkg.KindNotFound)
	_, err = env.community.LeaveCommunity(ctx, member, 9999)
	requireKind(t, err, pkg.KindNotFound)
	_, err = env.community.JoinCommunity(ctx, 0, c.ID)
	requireKind(t, err, pkg.KindUnauthorized)

	var joins int64
	env.store.DB.Model(&model.EventOutbox{}).Where("event_type = ?", model.EventCommunityJoin).Count(&joins)
	if joins != 1 {
		t.Fatalf("expected one join event, got %d", joins)
	}
}

func TestListUserCommunitiesOverlap(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")
	other := env.register(t, "other")

	own, err := env.community.CreateCommunity(ctx, u, "own", "")
	requireNoErr(t, err)
	foreign, err := env.community.CreateCommunity(ctx, other, "foreign", "")
	requireNoErr(t, err)
	_, err = env.community.JoinCommunity(ctx, u, own.ID)
	requireNoErr(t, err)
	_, err = env.community.JoinCommunity(ctx, u, foreign.ID)
	requireNoErr(t, err)

	got, err := env.community.ListUserCommunities(ctx, u)
	requireNoErr(t, err)
	if len(got.Created) != 1 || got.Created[0].ID != own.ID {
		t.Fatalf("unexpected created %+v", got.Created)
	}
	if len(got.Joined) != 2 || got.Joined[0].ID != own.ID || got.Joined[1].ID != foreign.ID {
		t.Fatalf("unexpected joined %+v", got.Joined)
	}

	_, err = env.community.ListUserCommunities(ctx, 0)
	requireKind(t, err, pkg.KindUnauthorized)
}

func TestListCommunitiesPaging(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")
	for _, name := range []string{"a", "b", "c"} {
		_, err := env.community.CreateCommunity(ctx, u, name, "")
		requireNoErr(t, err)
	}
	page, err := env.community.ListCommunities(ctx, 2, 2)
	requireNoErr(t, err)
	if len(page) != 1 || page[0].Name != "c" {
		t.Fatalf("unexpected second page %+v", page)
	}
	got, err := env.community.GetCommunity(ctx, page[0].ID)
	requireNoErr(t, err)
	if got.Name != "c" {
		t.Fatalf("unexpected community %+v", got)
	}
	_, err = env.community.GetCommunity(ctx, 9999)
	requireKind(t, err, pkg.KindNotFound)
}

func countMembers(t *testing.T, env *testEnv, communityID, userID uint64) int64 {
	t.Helper()
	var n int64
	requireNoErr(t, env.store.DB.Model(&model.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&n).Error)
	return n
}

func TestCreateCommunityConcurrentSameName(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.community.CreateCommunity(ctx, u, "race", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case pkg.IsKind(err, pkg.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || conflicts != n-1 {
		t.Fatalf("created=%d conflicts=%d", created, conflicts)
	}

	// 多个社区同时改成同一个名字，只有一个成功
	ids := make([]uint64, n)
	for i := range ids {
		c, err := env.community.CreateCommunity(ctx, u, fmt.Sprintf("c%d", i), "")
		requireNoErr(t, err)
		ids[i] = c.ID
	}
	renamed, conflicts := 0, 0
	target := "renamed"
	for _, id := range ids {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := env.community.UpdateCommunity(ctx, u, id, &target, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				renamed++
			case pkg.IsKind(err, pkg.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}(id)
	}
	wg.Wait()
	if renamed != 1 || conflicts != n-1 {
		t.Fatalf("renamed=%d conflicts=%d", renamed, conflicts)
	}

	var same int64
	requireNoErr(t, env.store.DB.Model(&model.Community{}).Where("name = ?", target).Count(&same).Error)
	if same != 1 {
		t.Fatalf("expected one community named %q, got %d", target, same)
	}
}

func TestJoinConcurrentDuplicates(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	member := env.register(t, "member")
	c, err := env.community.CreateCommunity(ctx, owner, "go", "")
	requireNoErr(t, err)
	const n = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.community.JoinCommunity(ctx, member, c.ID)
			if err != nil {
				t.Errorf("join: %v", err)
				return
			}
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if changed != 1 {
		t.Fatalf("exactly one join should report a change, got %d", changed)
	}
	if got := countMembers(t, env, c.ID, member); got != 1 {
		t.Fatalf("expected one membership row, got %d", got)
	}
}
