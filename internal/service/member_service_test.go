package service

import (
	"context"
	"errors"
	"testing"

	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
)

func TestRegisterPlacement(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewMemberService(db, cfg)
	ctx := context.Background()

	root, err := svc.CreateRoot(ctx, "root", "root@example.com")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}

	t.Run("指定位置直接安置", func(t *testing.T) {
		m, err := svc.Register(ctx, &RegisterRequest{
			Username:  "alice",
			Email:     "alice@example.com",
			SponsorID: root.ID,
			Position:  model.PositionLeft,
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if m.ParentID == nil || *m.ParentID != root.ID {
			t.Errorf("应安置在根节点下, parent=%v", m.ParentID)
		}
		if m.Position != model.PositionLeft {
			t.Errorf("position = %s, want LEFT", m.Position)
		}
		if m.SponsorID == nil || *m.SponsorID != root.ID {
			t.Errorf("sponsor = %v, want %d", m.SponsorID, root.ID)
		}
		if m.IsActive {
			t.Error("注册后未消费不应激活")
		}
	})

	t.Run("槽位被占沿外缘下沉", func(t *testing.T) {
		alice, _ := svc.memberRepo.GetByUsername(ctx, "alice")
		m, err := svc.Register(ctx, &RegisterRequest{
			Username:  "bob",
			Email:     "bob@example.com",
			SponsorID: root.ID,
			Position:  model.PositionLeft,
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		// 根的左槽已被 alice 占用，溢出安置到 alice 的左槽
		if m.ParentID == nil || *m.ParentID != alice.ID {
			t.Errorf("应下沉到 alice 下, parent=%v, want %d", m.ParentID, alice.ID)
		}
		if m.Position != model.PositionLeft {
			t.Errorf("position = %s, want LEFT", m.Position)
		}
	})

	t.Run("未指定位置挂弱侧", func(t *testing.T) {
		// 人工把根的左侧做成强侧
		memberRepo := repository.NewMemberRepository(db)
		if err := memberRepo.AddSideCounts(ctx, nil, root.ID, model.PositionLeft, 2, 0); err != nil {
			t.Fatalf("AddSideCounts: %v", err)
		}

		m, err := svc.Register(ctx, &RegisterRequest{
			Username:  "carol",
			Email:     "carol@example.com",
			SponsorID: root.ID,
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if m.Position != model.PositionRight {
			t.Errorf("弱侧应为 RIGHT, got %s", m.Position)
		}
		if m.ParentID == nil || *m.ParentID != root.ID {
			t.Errorf("右槽为空应直接安置在根下, parent=%v", m.ParentID)
		}
	})

	t.Run("推荐人与安置父节点分离", func(t *testing.T) {
		alice, _ := svc.memberRepo.GetByUsername(ctx, "alice")
		carol, _ := svc.memberRepo.GetByUsername(ctx, "carol")

		m, err := svc.Register(ctx, &RegisterRequest{
			Username:    "dave",
			Email:       "dave@example.com",
			SponsorID:   alice.ID,
			PlacementID: carol.ID,
			Position:    model.PositionRight,
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if m.SponsorID == nil || *m.SponsorID != alice.ID {
			t.Errorf("sponsor = %v, want alice(%d)", m.SponsorID, alice.ID)
		}
		if m.ParentID == nil || *m.ParentID != carol.ID {
			t.Errorf("parent = %v, want carol(%d)", m.ParentID, carol.ID)
		}
	})

	t.Run("推荐人被禁用拒绝注册", func(t *testing.T) {
		alice, _ := svc.memberRepo.GetByUsername(ctx, "alice")
		if err := svc.SetBlocked(ctx, alice.ID, true); err != nil {
			t.Fatalf("SetBlocked: %v", err)
		}
		defer svc.SetBlocked(ctx, alice.ID, false)

		_, err := svc.Register(ctx, &RegisterRequest{
			Username:  "eve",
			Email:     "eve@example.com",
			SponsorID: alice.ID,
		})
		if !errors.Is(err, ErrMemberBlocked) {
			t.Errorf("want ErrMemberBlocked, got %v", err)
		}
	})

	t.Run("缺少推荐人拒绝注册", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "nobody",
			Email:    "nobody@example.com",
		})
		if !errors.Is(err, ErrSponsorMissing) {
			t.Errorf("want ErrSponsorMissing, got %v", err)
		}
	})
}

func TestGetTree(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewMemberService(db, cfg)
	ctx := context.Background()

	root, err := svc.CreateRoot(ctx, "root", "root@example.com")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	left, err := svc.Register(ctx, &RegisterRequest{
		Username: "l1", Email: "l1@example.com", SponsorID: root.ID, Position: model.PositionLeft,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, &RegisterRequest{
		Username: "r1", Email: "r1@example.com", SponsorID: root.ID, Position: model.PositionRight,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, &RegisterRequest{
		Username: "l2", Email: "l2@example.com", SponsorID: root.ID, PlacementID: left.ID, Position: model.PositionRight,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tree, err := svc.GetTree(ctx, root.ID, 2)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if tree.Left == nil || tree.Left.Member.Username != "l1" {
		t.Fatalf("左子树错误: %+v", tree.Left)
	}
	if tree.Right == nil || tree.Right.Member.Username != "r1" {
		t.Fatalf("右子树错误: %+v", tree.Right)
	}
	if tree.Left.Right == nil || tree.Left.Right.Member.Username != "l2" {
		t.Fatalf("二层节点错误: %+v", tree.Left.Right)
	}

	// depth 截断
	shallow, err := svc.GetTree(ctx, root.ID, 1)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if shallow.Left == nil || shallow.Left.Right != nil {
		t.Error("depth=1 不应展开二层节点")
	}
}

func TestAncestorPath(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewMemberService(db, cfg)
	repo := repository.NewMemberRepository(db)
	ctx := context.Background()

	root, err := svc.CreateRoot(ctx, "root", "root@example.com")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}

	// root -> a(LEFT) -> b(RIGHT) -> c(LEFT)
	a, _ := svc.Register(ctx, &RegisterRequest{
		Username: "a", Email: "a@example.com", SponsorID: root.ID, Position: model.PositionLeft,
	})
	b, _ := svc.Register(ctx, &RegisterRequest{
		Username: "b", Email: "b@example.com", SponsorID: root.ID, PlacementID: a.ID, Position: model.PositionRight,
	})
	c, _ := svc.Register(ctx, &RegisterRequest{
		Username: "c", Email: "c@example.com", SponsorID: root.ID, PlacementID: b.ID, Position: model.PositionLeft,
	})

	t.Run("逐级上行且侧别正确", func(t *testing.T) {
		path, err := ancestorPath(ctx, db, repo, c, cfg.Business.MaxTreeDepth)
		if err != nil {
			t.Fatalf("ancestorPath: %v", err)
		}
		want := []ancestorStep{
			{MemberID: b.ID, Side: model.PositionLeft},
			{MemberID: a.ID, Side: model.PositionRight},
			{MemberID: root.ID, Side: model.PositionLeft},
		}
		if len(path) != len(want) {
			t.Fatalf("路径长度 = %d, want %d", len(path), len(want))
		}
		for i := range want {
			if path[i] != want[i] {
				t.Errorf("path[%d] = %+v, want %+v", i, path[i], want[i])
			}
		}
	})

	t.Run("深度超限报错", func(t *testing.T) {
		_, err := ancestorPath(ctx, db, repo, c, 2)
		if !errors.Is(err, ErrTreeTooDeep) {
			t.Errorf("want ErrTreeTooDeep, got %v", err)
		}
	})

	t.Run("环检测", func(t *testing.T) {
		// 人为制造数据故障：a 的父节点指向 c，形成 a -> c -> b -> a
		if err := db.Model(&model.Member{}).Where("id = ?", a.ID).
			Update("parent_id", c.ID).Error; err != nil {
			t.Fatalf("制造环失败: %v", err)
		}

		cc, _ := repo.GetByID(ctx, c.ID)
		_, err := ancestorPath(ctx, db, repo, cc, cfg.Business.MaxTreeDepth)
		if !errors.Is(err, ErrTreeCycle) {
			t.Errorf("want ErrTreeCycle, got %v", err)
		}
	})
}
