package enums

type PlanTier string

const (
	TierFree   PlanTier = "free"
	TierPro    PlanTier = "pro"
	TierMaster PlanTier = "master"
	TierOtrade PlanTier = "otrade"
)

func ParsePlanTier(raw string) (PlanTier, bool) {
	switch PlanTier(raw) {
	case TierFree, TierPro, TierMaster, TierOtrade:
		return PlanTier(raw), true
	default:
		return "", false
	}
}
