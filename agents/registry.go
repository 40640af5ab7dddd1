package agents

func init() {
	for _, r := range []Runner{
		Copywriting,
		ImagePromptAgent,
		ImageAnalysis,
		CreativeOptimizationAgent,
		Optimization,
		DailyCheck,
		BudgetOptimization,
		QualityScore,
		FunnelAnalysis,
		CreativePerformance,
		AudienceExpansion,
		ReportGeneration,
		ABTestDesign,
		MVTDesign,
		Strategy,
		CompetitorAnalysis,
		Conversational,
	} {
		register(r)
	}
}

// Names lists the registered agent names in order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name()
	}
	return names
}
