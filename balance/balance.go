// Package balance 分账引擎
// 输入已通过写入校验的消费数据，计算小组内每个成员的应收/应付与两两净额
// 纯内存计算，不访问数据库；金额运算使用 decimal，输出保留两位小数
package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"tripmate/models"
)

// MemberBalance 单个成员的分账汇总
type MemberBalance struct {
	MemberID     uint    `json:"member_id"`
	TravelerName string  `json:"traveler_name"`
	TotalOwed    float64 `json:"total_owed"`  // 别人欠他的总额
	TotalOwing   float64 `json:"total_owing"` // 他欠别人的总额
	NetBalance   float64 `json:"net_balance"` // = total_owed - total_owing
}

// PairBalance 两个成员之间的净欠款，from 欠 to
type PairBalance struct {
	FromID   uint    `json:"from_id"`
	FromName string  `json:"from_name"`
	ToID     uint    `json:"to_id"`
	ToName   string  `json:"to_name"`
	Amount   float64 `json:"amount"`
}

// GroupBalances 小组分账结果
type GroupBalances struct {
	TotalExpenses float64         `json:"total_expenses"`
	Members       []MemberBalance `json:"members"`
	Pairs         []PairBalance   `json:"pairs"`
}

// ledger 稀疏欠款账本：ledger[ower][owner] = ower 欠 owner 的累计金额
type ledger map[uint]map[uint]decimal.Decimal

func (l ledger) add(ower, owner uint, amount decimal.Decimal) {
	row, ok := l[ower]
	if !ok {
		row = make(map[uint]decimal.Decimal)
		l[ower] = row
	}
	row[owner] = row[owner].Add(amount)
}

func (l ledger) get(ower, owner uint) decimal.Decimal {
	return l[ower][owner]
}

// buildLedger 把消费单展开成 ower → owner 的欠款账本
// 明细行存在时按行分摊，否则按整单参与者分摊；
// 垫付人自己的分摊记录跳过（不能欠自己），外部分摊人不进入账本
func buildLedger(expenses []models.Expense) ledger {
	l := make(ledger)
	for _, e := range expenses {
		if len(e.LineItems) > 0 {
			for _, item := range e.LineItems {
				qty := item.Quantity
				if qty <= 0 {
					qty = 1
				}
				itemTotal := decimal.NewFromFloat(item.Amount).Mul(decimal.NewFromInt(int64(qty)))
				for _, p := range item.Participants {
					if p.ParticipantID == nil || *p.ParticipantID == e.OwnerID {
						continue
					}
					l.add(*p.ParticipantID, e.OwnerID, share(itemTotal, p.SplitPercentage))
				}
			}
			continue
		}
		total := decimal.NewFromFloat(e.Amount)
		for _, p := range e.Participants {
			if p.ParticipantID == nil || *p.ParticipantID == e.OwnerID {
				continue
			}
			l.add(*p.ParticipantID, e.OwnerID, share(total, p.SplitPercentage))
		}
	}
	return l
}

// share 按百分比计算分摊金额
func share(amount decimal.Decimal, percentage float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(percentage)).Div(hundred)
}

// ComputeBalances 计算整组的分账汇总
// 读时聚合：每次从当前消费集合全量重算，不维护增量状态
func ComputeBalances(expenses []models.Expense, members []models.GroupMember) *GroupBalances {
	l := buildLedger(expenses)

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(decimal.NewFromFloat(e.Amount))
	}

	names := make(map[uint]string, len(members))
	for _, m := range members {
		names[m.ID] = m.TravelerName
	}

	result := &GroupBalances{TotalExpenses: round2(total)}

	// 每个成员的应收/应付
	for _, m := range members {
		owing := decimal.Zero
		for _, amount := range l[m.ID] {
			owing = owing.Add(amount)
		}
		owed := decimal.Zero
		for _, row := range l {
			if amount, ok := row[m.ID]; ok {
				owed = owed.Add(amount)
			}
		}
		result.Members = append(result.Members, MemberBalance{
			MemberID:     m.ID,
			TravelerName: m.TravelerName,
			TotalOwed:    round2(owed),
			TotalOwing:   round2(owing),
			NetBalance:   round2(owed.Sub(owing)),
		})
	}

	// 两两净额：net = B欠A - A欠B，只报告 |net| > 0.01 的对
	seen := make(map[[2]uint]bool)
	for i := range members {
		for j := range members {
			if i == j {
				continue
			}
			a, b := members[i].ID, members[j].ID
			key := [2]uint{min(a, b), max(a, b)}
			if seen[key] {
				continue
			}
			seen[key] = true

			net := l.get(a, b).Sub(l.get(b, a)) // 正数表示 a 净欠 b
			if net.Abs().LessThanOrEqual(tolerance) {
				continue
			}
			from, to := a, b
			if net.IsNegative() {
				from, to = b, a
				net = net.Neg()
			}
			result.Pairs = append(result.Pairs, PairBalance{
				FromID:   from,
				FromName: names[from],
				ToID:     to,
				ToName:   names[to],
				Amount:   round2(net),
			})
		}
	}

	// 按净额绝对值降序
	sort.Slice(result.Pairs, func(i, j int) bool {
		if result.Pairs[i].Amount != result.Pairs[j].Amount {
			return result.Pairs[i].Amount > result.Pairs[j].Amount
		}
		return result.Pairs[i].FromID < result.Pairs[j].FromID
	})

	return result
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func min(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

func max(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
