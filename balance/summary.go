package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"tripmate/models"
)

// TripAmount 某个行程上的欠款金额
type TripAmount struct {
	TripID   uint    `json:"trip_id"`
	TripName string  `json:"trip_name"`
	Amount   float64 `json:"amount"`
}

// Counterparty 一个往来对象（我欠的人 / 欠我的人），带按行程的明细
type Counterparty struct {
	MemberID     uint         `json:"member_id"`
	TravelerName string       `json:"traveler_name"`
	Total        float64      `json:"total"`
	Trips        []TripAmount `json:"trips"`
}

// TripSummary 单个行程上我的应收/应付
type TripSummary struct {
	TripID    uint    `json:"trip_id"`
	TripName  string  `json:"trip_name"`
	YouOwe    float64 `json:"you_owe"`
	OwedToYou float64 `json:"owed_to_you"`
}

// PersonalSummary 个人视角的分账汇总：跨全组所有行程聚合，并附带行程级拆分
type PersonalSummary struct {
	MemberID        uint           `json:"member_id"`
	TravelerName    string         `json:"traveler_name"`
	TotalOwed       float64        `json:"total_owed"`
	TotalOwing      float64        `json:"total_owing"`
	NetBalance      float64        `json:"net_balance"`
	TripBreakdown   []TripSummary  `json:"trip_breakdown"`
	PeopleYouOwe    []Counterparty `json:"people_you_owe"`
	PeopleWhoOweYou []Counterparty `json:"people_who_owe_you"`
}

// ComputePersonalSummary 计算某个成员的个人分账视图
// 账本先按行程切分，再聚合出「我欠谁」「谁欠我」两张名单，每个往来对象带行程明细
func ComputePersonalSummary(memberID uint, expenses []models.Expense, trips []models.Trip, members []models.GroupMember) *PersonalSummary {
	names := make(map[uint]string, len(members))
	for _, m := range members {
		names[m.ID] = m.TravelerName
	}
	tripNames := make(map[uint]string, len(trips))
	for _, t := range trips {
		tripNames[t.ID] = t.Name
	}

	// 按行程分别建账
	byTrip := make(map[uint]ledger)
	for _, t := range trips {
		var tripExpenses []models.Expense
		for _, e := range expenses {
			if e.TripID == t.ID {
				tripExpenses = append(tripExpenses, e)
			}
		}
		byTrip[t.ID] = buildLedger(tripExpenses)
	}

	summary := &PersonalSummary{
		MemberID:     memberID,
		TravelerName: names[memberID],
	}

	// youOwe[对方] / oweYou[对方]：跨行程累计；tripYouOwe/tripOweYou：行程内累计
	youOwe := make(map[uint]decimal.Decimal)
	oweYou := make(map[uint]decimal.Decimal)
	youOweTrips := make(map[uint]map[uint]decimal.Decimal) // 对方 → 行程 → 金额
	oweYouTrips := make(map[uint]map[uint]decimal.Decimal)

	totalOwed := decimal.Zero
	totalOwing := decimal.Zero

	for _, t := range trips {
		l := byTrip[t.ID]
		tripOwe := decimal.Zero
		tripOwed := decimal.Zero

		for owner, amount := range l[memberID] {
			tripOwe = tripOwe.Add(amount)
			youOwe[owner] = youOwe[owner].Add(amount)
			if youOweTrips[owner] == nil {
				youOweTrips[owner] = make(map[uint]decimal.Decimal)
			}
			youOweTrips[owner][t.ID] = youOweTrips[owner][t.ID].Add(amount)
		}
		for ower, row := range l {
			if amount, ok := row[memberID]; ok {
				tripOwed = tripOwed.Add(amount)
				oweYou[ower] = oweYou[ower].Add(amount)
				if oweYouTrips[ower] == nil {
					oweYouTrips[ower] = make(map[uint]decimal.Decimal)
				}
				oweYouTrips[ower][t.ID] = oweYouTrips[ower][t.ID].Add(amount)
			}
		}

		totalOwing = totalOwing.Add(tripOwe)
		totalOwed = totalOwed.Add(tripOwed)

		if tripOwe.Abs().GreaterThan(tolerance) || tripOwed.Abs().GreaterThan(tolerance) {
			summary.TripBreakdown = append(summary.TripBreakdown, TripSummary{
				TripID:    t.ID,
				TripName:  tripNames[t.ID],
				YouOwe:    round2(tripOwe),
				OwedToYou: round2(tripOwed),
			})
		}
	}

	summary.TotalOwed = round2(totalOwed)
	summary.TotalOwing = round2(totalOwing)
	summary.NetBalance = round2(totalOwed.Sub(totalOwing))
	summary.PeopleYouOwe = buildCounterparties(youOwe, youOweTrips, names, tripNames)
	summary.PeopleWhoOweYou = buildCounterparties(oweYou, oweYouTrips, names, tripNames)

	return summary
}

// buildCounterparties 把累计表整理成带行程明细的名单，按金额降序
func buildCounterparties(totals map[uint]decimal.Decimal, trips map[uint]map[uint]decimal.Decimal, names map[uint]string, tripNames map[uint]string) []Counterparty {
	var list []Counterparty
	for memberID, total := range totals {
		if total.Abs().LessThanOrEqual(tolerance) {
			continue
		}
		cp := Counterparty{
			MemberID:     memberID,
			TravelerName: names[memberID],
			Total:        round2(total),
		}
		for tripID, amount := range trips[memberID] {
			if amount.Abs().LessThanOrEqual(tolerance) {
				continue
			}
			cp.Trips = append(cp.Trips, TripAmount{
				TripID:   tripID,
				TripName: tripNames[tripID],
				Amount:   round2(amount),
			})
		}
		sort.Slice(cp.Trips, func(i, j int) bool { return cp.Trips[i].TripID < cp.Trips[j].TripID })
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].MemberID < list[j].MemberID
	})
	return list
}
