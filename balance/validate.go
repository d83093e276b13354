package balance

import (
	"github.com/shopspring/decimal"

	"tripmate/apperr"
	"tripmate/models"
)

// PercentTolerance 百分比求和的容差，吸收小数舍入误差
const PercentTolerance = "0.01"

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.RequireFromString(PercentTolerance)
)

// ValidateExpenseSplits 校验消费单的分摊设置，写入前必须通过
// 规则：
//   - 有明细行时逐行独立校验（整单参与者不参与分摊，不校验）
//   - 无明细行且有参与者时校验整单参与者
//   - 每条分摊记录必须指向一个成员或一个外部分摊人，且百分比在 (0, 100] 区间
//   - 同一批参与者的百分比之和必须等于 100，容差 0.01
//
// 零参与者的消费单是合法的：只计入总支出，不产生欠款
func ValidateExpenseSplits(e *models.Expense) error {
	if len(e.LineItems) > 0 {
		for _, item := range e.LineItems {
			if len(item.Participants) == 0 {
				continue
			}
			var percents []float64
			for _, p := range item.Participants {
				if err := validateParticipantRef(p.ParticipantID, p.ExternalParticipantID, p.ExternalName); err != nil {
					return err
				}
				percents = append(percents, p.SplitPercentage)
			}
			if err := validatePercentSum(percents, "明细行「"+item.Description+"」"); err != nil {
				return err
			}
		}
		return nil
	}

	if len(e.Participants) == 0 {
		return nil
	}

	var percents []float64
	for _, p := range e.Participants {
		if err := validateParticipantRef(p.ParticipantID, p.ExternalParticipantID, p.ExternalName); err != nil {
			return err
		}
		percents = append(percents, p.SplitPercentage)
	}
	return validatePercentSum(percents, "消费单")
}

// validateParticipantRef 校验成员引用与外部引用二选一
func validateParticipantRef(memberID, externalID *uint, externalName string) error {
	hasMember := memberID != nil
	hasExternal := externalID != nil || externalName != ""
	if hasMember && hasExternal {
		return apperr.Validationf("分摊参与者不能同时是小组成员和外部人员")
	}
	if !hasMember && !hasExternal {
		return apperr.Validationf("分摊参与者必须指定小组成员或外部人员")
	}
	return nil
}

// validatePercentSum 校验百分比之和为 100 ± 0.01
func validatePercentSum(percents []float64, scope string) error {
	sum := decimal.Zero
	for _, p := range percents {
		d := decimal.NewFromFloat(p)
		if d.LessThanOrEqual(decimal.Zero) || d.GreaterThan(hundred) {
			return apperr.Validationf("%s的分摊百分比必须在 0 到 100 之间", scope)
		}
		sum = sum.Add(d)
	}
	if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
		return apperr.Validationf("%s的分摊百分比之和必须为 100，当前为 %s", scope, sum.String())
	}
	return nil
}
