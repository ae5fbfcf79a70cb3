package service

import (
	"context"
	"errors"
	"fmt"

	"mlmsystem/internal/config"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrTreeCycle      = errors.New("安置树存在环，数据完整性被破坏")
	ErrTreeTooDeep    = errors.New("安置树深度超过上限")
	ErrMemberBlocked  = errors.New("会员已被禁用")
	ErrSponsorMissing = errors.New("推荐人不能为空")
)

type MemberService struct {
	db         *gorm.DB
	cfg        *config.Config
	memberRepo *repository.MemberRepository
	walletRepo *repository.WalletRepository
}

func NewMemberService(db *gorm.DB, cfg *config.Config) *MemberService {
	return &MemberService{
		db:         db,
		cfg:        cfg,
		memberRepo: repository.NewMemberRepository(db),
		walletRepo: repository.NewWalletRepository(db),
	}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	SponsorID   int64  `json:"sponsor_id" binding:"required"` // 推荐人，直推奖受益人
	PlacementID int64  `json:"placement_id"`                  // 期望安置的父节点，缺省挂在推荐人下
	Position    string `json:"position"`                      // LEFT/RIGHT，缺省自动选弱侧
}

// CreateRoot 创建根节点（系统初始化，只允许一次）
func (s *MemberService) CreateRoot(ctx context.Context, username, email string) (*model.Member, error) {
	root := &model.Member{
		MemberNo: idgen.GenerateMemberNo(),
		Username: username,
		Email:    email,
		Role:     model.RoleAdmin,
		Position: model.PositionRoot,
		Rank:     rankTable(s.cfg)[0].Name,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.memberRepo.Create(ctx, tx, root); err != nil {
			return err
		}
		_, err := s.walletRepo.GetOrCreate(ctx, tx, root.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Register 注册新会员
//
// 推荐关系和安置位置是两回事：sponsor_id 记录谁拿直推奖，
// parent_id/position 决定二叉树物理位置。期望的安置位被占用时，
// 沿该侧外缘下沉到第一个空位（溢出安置）
func (s *MemberService) Register(ctx context.Context, req *RegisterRequest) (*model.Member, error) {
	if req.SponsorID == 0 {
		return nil, ErrSponsorMissing
	}

	sponsor, err := s.memberRepo.GetByID(ctx, req.SponsorID)
	if err != nil {
		return nil, fmt.Errorf("查询推荐人失败: %w", err)
	}
	if sponsor.IsBlocked {
		return nil, ErrMemberBlocked
	}

	placementID := req.PlacementID
	if placementID == 0 {
		placementID = req.SponsorID
	}
	placement, err := s.memberRepo.GetByID(ctx, placementID)
	if err != nil {
		return nil, fmt.Errorf("查询安置父节点失败: %w", err)
	}

	side := req.Position
	if side != model.PositionLeft && side != model.PositionRight {
		// 未指定时挂弱侧，让两条腿尽量平衡
		side = model.PositionLeft
		if placement.LeftTotalCount > placement.RightTotalCount {
			side = model.PositionRight
		}
	}

	parent, err := s.findPlacementSlot(ctx, placement, side)
	if err != nil {
		return nil, err
	}

	sponsorID := sponsor.ID
	parentID := parent.ID
	member := &model.Member{
		MemberNo:  idgen.GenerateMemberNo(),
		Username:  req.Username,
		Email:     req.Email,
		Role:      model.RoleUser,
		ParentID:  &parentID,
		Position:  side,
		SponsorID: &sponsorID,
		Rank:      rankTable(s.cfg)[0].Name,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.memberRepo.Create(ctx, tx, member); err != nil {
			return err
		}
		// 注册即建钱包；成员计数要等首次合格消费激活后才向上传播
		_, err := s.walletRepo.GetOrCreate(ctx, tx, member.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("注册失败: %w", err)
	}

	return member, nil
}

// findPlacementSlot 沿指定侧外缘下沉找第一个空位
func (s *MemberService) findPlacementSlot(ctx context.Context, start *model.Member, side string) (*model.Member, error) {
	cur := start
	for depth := 0; depth < s.cfg.Business.MaxTreeDepth; depth++ {
		child, err := s.memberRepo.GetChild(ctx, cur.ID, side)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return cur, nil
		}
		cur = child
	}
	return nil, ErrTreeTooDeep
}

func (s *MemberService) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	return s.memberRepo.GetByID(ctx, id)
}

func (s *MemberService) ListMembers(ctx context.Context, page, pageSize int) ([]*model.Member, int64, error) {
	return s.memberRepo.List(ctx, page, pageSize)
}

func (s *MemberService) SetBlocked(ctx context.Context, memberID int64, blocked bool) error {
	return s.memberRepo.SetBlocked(ctx, memberID, blocked)
}

// TreeNode 团队树视图节点
type TreeNode struct {
	Member *model.Member `json:"member"`
	Left   *TreeNode     `json:"left,omitempty"`
	Right  *TreeNode     `json:"right,omitempty"`
}

// GetTree 读取某节点向下 depth 层的安置树（管理端/团队页展示用）
// 这里的遍历只服务于展示和校验，奖金计算永远走维护好的聚合计数器
func (s *MemberService) GetTree(ctx context.Context, rootID int64, depth int) (*TreeNode, error) {
	member, err := s.memberRepo.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return s.buildTree(ctx, member, depth)
}

func (s *MemberService) buildTree(ctx context.Context, member *model.Member, depth int) (*TreeNode, error) {
	node := &TreeNode{Member: member}
	if depth <= 0 {
		return node, nil
	}

	children, err := s.memberRepo.GetChildren(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		sub, err := s.buildTree(ctx, child, depth-1)
		if err != nil {
			return nil, err
		}
		if child.Position == model.PositionLeft {
			node.Left = sub
		} else {
			node.Right = sub
		}
	}
	return node, nil
}

// ancestorStep 向上回溯路径中的一步：在 MemberID 这个祖先眼里，
// 源头会员位于 Side 这一侧（由回溯经过的直接子节点的位置决定）
type ancestorStep struct {
	MemberID int64
	Side     string
}

// ancestorPath 从 start 的父节点回溯到根，返回每个祖先及对应的侧
//
// 【数据完整性】带 visited 集合和深度上限双重防护：
// 树上出现环（节点是自己的祖先）属于严重数据故障，
// 必须立刻报错让整个事务回滚，而不是无限循环
func ancestorPath(ctx context.Context, tx *gorm.DB, repo *repository.MemberRepository, start *model.Member, maxDepth int) ([]ancestorStep, error) {
	var path []ancestorStep
	visited := map[int64]bool{start.ID: true}

	cur := start
	for cur.ParentID != nil {
		if len(path) >= maxDepth {
			return nil, ErrTreeTooDeep
		}
		parentID := *cur.ParentID
		if visited[parentID] {
			return nil, ErrTreeCycle
		}
		visited[parentID] = true

		path = append(path, ancestorStep{MemberID: parentID, Side: cur.Position})

		parent, err := repo.GetByIDTx(ctx, tx, parentID)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return path, nil
}
