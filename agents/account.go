package agents

import "adsdash/agent-app/tools"

// NoParams is the parameter type of agents that read only the dataset.
type NoParams struct{}

// OptimizationParams leaves a threshold nil when the caller omits it. An
// explicit 0 budget is kept; targets must be positive.
type OptimizationParams struct {
	TargetROAS     *float64 `json:"target_roas,omitempty" validate:"omitempty,gt=0,lte=100"`
	MaxCPA         *float64 `json:"max_cpa,omitempty" validate:"omitempty,gt=0"`
	MinDailyBudget *float64 `json:"min_daily_budget,omitempty" validate:"omitempty,gte=0"`
}

type OptimizationAction struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority" jsonschema_description:"🔴/🟡/🟢"`
	Impact           string   `json:"impact"`
	Metric           string   `json:"metric"`
	Campaigns        []string `json:"campaigns,omitempty"`
	RecommendedSteps []string `json:"recommended_steps,omitempty"`
}

type BudgetRecommendation struct {
	Campaign         string  `json:"campaign"`
	CurrentSpend     float64 `json:"current_spend"`
	RecommendedSpend float64 `json:"recommended_spend"`
	Delta            float64 `json:"delta"`
	Action           string  `json:"action"`
	Rationale        string  `json:"rationale"`
	Priority         string  `json:"priority"`
}

type ExperimentPlan struct {
	Name            string   `json:"name"`
	Hypothesis      string   `json:"hypothesis"`
	Metric          string   `json:"metric"`
	Variations      []string `json:"variations"`
	ExpectedOutcome string   `json:"expected_outcome"`
}

type OptimizationSummary struct {
	HealthScore   int      `json:"health_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	OverallStatus string   `json:"overall_status"`
	KeyInsights   []string `json:"key_insights"`
	FocusAreas    []string `json:"focus_areas"`
	NextSteps     []string `json:"next_steps"`
}

type OptimizationResult struct {
	Summary               OptimizationSummary    `json:"summary"`
	UrgentActions         []OptimizationAction   `json:"urgent_actions" validate:"dive"`
	Opportunities         []OptimizationAction   `json:"opportunities" validate:"dive"`
	BudgetRecommendations []BudgetRecommendation `json:"budget_recommendations"`
	ExperimentPlan        []ExperimentPlan       `json:"experiment_plan"`
	Watchlist             []string               `json:"watchlist,omitempty"`
}

var Optimization = &Definition[OptimizationParams, OptimizationResult]{
	AgentName:      "optimization",
	Summary:        "Account-wide optimization plan: urgent fixes, opportunities, budget moves and experiments.",
	Tier:           Quality,
	KnowledgeQuery: "預算優化 成長 活動",
	System: `你是{{brand_name}}的 Meta 廣告投放顧問。用工具取得帳戶概況、緊急問題、成長機會與預算分布，
必要時參考知識庫案例，給出帳戶健康分數（0-100）與可執行的優化計畫。所有數字都必須來自工具結果。
以繁體中文回答。`,
	Prompt: `目標 ROAS：{{target_roas}}，可接受 CPA 上限：{{max_cpa}}，最低日預算：{{min_daily_budget}}。
請提供緊急行動、成長機會、預算調整建議、實驗計畫與觀察清單。`,
	Tools: []string{
		"compute_account_snapshot", "identify_urgent", "discover_opportunities", "analyze_budget", "load_knowledge_examples",
	},
	Prepare: func(p *OptimizationParams, s *tools.Settings) {
		s.TargetROAS = defaultTo(&p.TargetROAS, 3.0)
		s.MaxCPA = defaultTo(&p.MaxCPA, 500)
		defaultTo(&p.MinDailyBudget, 1000)
		s.MinDailyBudget = p.MinDailyBudget
	},
}

// DailyCheckParams: a min_campaign_spend of 0 checks every campaign.
type DailyCheckParams struct {
	TargetROAS       *float64 `json:"target_roas,omitempty" validate:"omitempty,gt=0,lte=100"`
	MaxCPA           *float64 `json:"max_cpa,omitempty" validate:"omitempty,gt=0"`
	MinCampaignSpend *float64 `json:"min_campaign_spend,omitempty" validate:"omitempty,gte=0"`
}

type ProblemCampaign struct {
	CampaignName string  `json:"campaign_name"`
	ROAS         float64 `json:"roas"`
	Spend        float64 `json:"spend"`
	Purchases    int     `json:"purchases"`
	IssueType    string  `json:"issue_type"`
	Severity     string  `json:"severity" jsonschema_description:"高/中/低"`
	RootCause    string  `json:"root_cause"`
}

type Recommendation struct {
	Action         string   `json:"action"`
	Target         string   `json:"target"`
	Priority       string   `json:"priority"`
	ExpectedImpact string   `json:"expected_impact"`
	ExecutionSteps []string `json:"execution_steps"`
}

type DailyCheckResult struct {
	CheckDate           string            `json:"check_date"`
	TotalCampaigns      int               `json:"total_campaigns" validate:"gte=0"`
	TotalSpend          float64           `json:"total_spend" validate:"gte=0"`
	AverageROAS         float64           `json:"average_roas" validate:"gte=0"`
	ProblemCampaigns    []ProblemCampaign `json:"problem_campaigns,omitempty"`
	UrgentIssues        []string          `json:"urgent_issues,omitempty"`
	Recommendations     []Recommendation  `json:"recommendations,omitempty"`
	EstimatedRiskAmount float64           `json:"estimated_risk_amount,omitempty" validate:"gte=0"`
	HealthScore         int               `json:"health_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	Summary             string            `json:"summary" jsonschema_description:"給主管看的執行摘要"`
}

var DailyCheck = &Definition[DailyCheckParams, DailyCheckResult]{
	AgentName: "daily_check",
	Summary:   "Daily health check: problem campaigns, money at risk and prioritized fixes.",
	Tier:      Fast,
	System: `你是每日巡檢 Meta 廣告帳戶的投放分析師。用工具取得帳戶總覽、各活動表現、低 ROAS 活動與風險金額，
找出問題活動與根本原因，給出健康分數（0-100）與具優先級的建議。今天是 {{today}}。以繁體中文回答。`,
	Prompt: `目標 ROAS：{{target_roas}}，可接受 CPA 上限：{{max_cpa}}，只檢查花費超過 {{min_campaign_spend}} 的活動。
請完成今日檢查。`,
	Tools: []string{
		"get_all_campaigns_summary", "get_campaign_performance", "identify_low_roas_campaigns", "calculate_risk_amount",
	},
	Prepare: func(p *DailyCheckParams, s *tools.Settings) {
		s.TargetROAS = defaultTo(&p.TargetROAS, 3.0)
		s.MaxCPA = defaultTo(&p.MaxCPA, 500)
		defaultTo(&p.MinCampaignSpend, 1000)
		s.MinCampaignSpend = p.MinCampaignSpend
	},
}

type BudgetOptimizationParams struct {
	TargetROAS        *float64 `json:"target_roas,omitempty" validate:"omitempty,gt=0,lte=100"`
	IncreaseThreshold *float64 `json:"increase_threshold,omitempty" validate:"omitempty,gte=0"`
	DecreaseThreshold *float64 `json:"decrease_threshold,omitempty" validate:"omitempty,gte=0"`
}

type BudgetSummary struct {
	TotalSpend   float64  `json:"total_spend"`
	TotalRevenue float64  `json:"total_revenue"`
	OverallROAS  float64  `json:"overall_roas"`
	TotalProfit  float64  `json:"total_profit"`
	HealthScore  int      `json:"health_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	KeyFindings  []string `json:"key_findings,omitempty"`
	WatchMetrics []string `json:"watch_metrics,omitempty"`
}

type BudgetAdjustment struct {
	Campaign         string  `json:"campaign"`
	CurrentSpend     float64 `json:"current_spend"`
	RecommendedSpend float64 `json:"recommended_spend"`
	Delta            float64 `json:"delta"`
	Priority         string  `json:"priority"`
	Rationale        string  `json:"rationale"`
	ExpectedImpact   string  `json:"expected_impact"`
}

type GrowthOpportunity struct {
	Name              string   `json:"name"`
	CurrentSpend      float64  `json:"current_spend"`
	CurrentROAS       float64  `json:"current_roas"`
	Recommendation    string   `json:"recommendation"`
	SupportingMetrics []string `json:"supporting_metrics,omitempty"`
}

type BudgetExperiment struct {
	Name           string `json:"name"`
	Hypothesis     string `json:"hypothesis"`
	Metric         string `json:"metric"`
	BudgetSplit    string `json:"budget_split"`
	DurationDays   *int   `json:"duration_days,omitempty"`
	ExpectedResult string `json:"expected_result,omitempty"`
}

type AllocationPlan struct {
	IncreaseAmount float64  `json:"increase_amount"`
	DecreaseAmount float64  `json:"decrease_amount"`
	ReinvestAmount float64  `json:"reinvest_amount"`
	Notes          []string `json:"notes,omitempty"`
}

type BudgetOptimizationResult struct {
	Summary                 BudgetSummary       `json:"summary"`
	IncreaseRecommendations []BudgetAdjustment  `json:"increase_recommendations,omitempty"`
	DecreaseRecommendations []BudgetAdjustment  `json:"decrease_recommendations,omitempty"`
	ReallocationPlan        AllocationPlan      `json:"reallocation_plan"`
	GrowthOpportunities     []GrowthOpportunity `json:"growth_opportunities,omitempty"`
	Experiments             []BudgetExperiment  `json:"experiments,omitempty"`
}

var BudgetOptimization = &Definition[BudgetOptimizationParams, BudgetOptimizationResult]{
	AgentName:      "budget_optimization",
	Summary:        "Recommends budget increases, cuts and reallocation between campaigns.",
	Tier:           Balanced,
	KnowledgeQuery: "預算重新分配 成功 案例",
	System: `你是 Meta 廣告預算配置專家。用工具取得預算總覽、各活動花費，以及可加碼與應減碼的活動，
給出預算健康度（0-100）、加減碼建議、重分配方案、成長機會與預算實驗。金額以新台幣計。以繁體中文回答。`,
	Prompt: `目標 ROAS：{{target_roas}}
平均花費低於 {{increase_threshold}} 且達標的活動可考慮加碼；平均花費高於 {{decrease_threshold}} 且遠低於目標的活動應考慮減碼。
請提出預算優化方案。`,
	Tools: []string{
		"compute_budget_summary", "group_spend_by_campaign", "detect_increase_targets", "detect_decrease_targets",
		"load_knowledge_examples",
	},
	Prepare: func(p *BudgetOptimizationParams, s *tools.Settings) {
		s.TargetROAS = defaultTo(&p.TargetROAS, 3.0)
		defaultTo(&p.IncreaseThreshold, 1000)
		defaultTo(&p.DecreaseThreshold, 3000)
		s.IncreaseThreshold, s.DecreaseThreshold = p.IncreaseThreshold, p.DecreaseThreshold
	},
	Warn: func(p BudgetOptimizationParams) []string {
		if *p.IncreaseThreshold > *p.DecreaseThreshold {
			return []string{"加碼門檻高於減碼門檻，部分活動可能同時出現在兩份清單"}
		}
		return nil
	},
}

type QualityIssue struct {
	Priority           string   `json:"priority"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ImpactedAds        []string `json:"impacted_ads,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
	MetricsToWatch     []string `json:"metrics_to_watch,omitempty"`
}

type QualitySummary struct {
	OverallStatus    string   `json:"overall_status"`
	HealthScore      int      `json:"health_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	Strengths        []string `json:"strengths,omitempty"`
	Weaknesses       []string `json:"weaknesses,omitempty"`
	ImprovementFocus []string `json:"improvement_focus,omitempty"`
}

type QualityExperiment struct {
	Name            string   `json:"name"`
	Hypothesis      string   `json:"hypothesis"`
	Steps           []string `json:"steps,omitempty"`
	ExpectedOutcome string   `json:"expected_outcome"`
}

type QualityResult struct {
	Summary     QualitySummary      `json:"summary"`
	Issues      []QualityIssue      `json:"issues"`
	Experiments []QualityExperiment `json:"experiments"`
}

var QualityScore = &Definition[NoParams, QualityResult]{
	AgentName:      "quality_score",
	Summary:        "Reviews Meta quality, engagement and conversion rankings and plans fixes.",
	Tier:           Fast,
	KnowledgeQuery: "廣告 品質 提升 案例",
	System: `你是 Meta 廣告品質分數分析師。用工具取得品質、互動率與轉換率排名的分布、分數統計與低品質廣告，
給出品質健康度（0-100）、主要問題與改善實驗。以繁體中文回答。`,
	Prompt: `請分析帳戶廣告的品質排名，指出亮點、弱點與需要優先處理的廣告。`,
	Tools: []string{
		"compute_quality_distribution", "compute_score_stats", "detect_low_quality_ads", "load_knowledge_examples",
	},
}
