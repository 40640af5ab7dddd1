package agents

import "adsdash/agent-app/tools"

type ABTestParams struct {
	Objective string `json:"objective,omitempty" jsonschema_description:"What the test should improve"`
}

type MetricSnapshot struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type TestVariation struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

type TestIdea struct {
	Priority         string          `json:"priority"`
	Variable         string          `json:"variable"`
	Hypothesis       string          `json:"hypothesis"`
	SuccessMetrics   []string        `json:"success_metrics,omitempty"`
	GuardrailMetrics []string        `json:"guardrail_metrics,omitempty"`
	TestDuration     string          `json:"test_duration"`
	BudgetAllocation string          `json:"budget_allocation"`
	ExpectedImpact   string          `json:"expected_impact"`
	Variations       []TestVariation `json:"variations,omitempty" validate:"dive"`
}

type ExecutionChecklist struct {
	Before []string `json:"before"`
	During []string `json:"during"`
	After  []string `json:"after"`
}

type AdvancedRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ABTestResult struct {
	OverallSummary     string                   `json:"overall_summary"`
	BaselineMetrics    []MetricSnapshot         `json:"baseline_metrics"`
	TestIdeas          []TestIdea               `json:"test_ideas" validate:"dive"`
	SampleSizeNotes    []string                 `json:"sample_size_notes"`
	RiskManagement     []string                 `json:"risk_management"`
	ExecutionChecklist ExecutionChecklist       `json:"execution_checklist"`
	AdvancedStrategies []AdvancedRecommendation `json:"advanced_strategies"`
}

var ABTestDesign = &Definition[ABTestParams, ABTestResult]{
	AgentName:      "ab_test_design",
	Summary:        "Designs A/B tests from the account baseline and headline and CTA contrasts.",
	Tier:           Balanced,
	KnowledgeQuery: "A/B 測試 成功 案例",
	System: `你是 Meta 廣告實驗設計顧問。用工具取得帳戶基準指標與標題、CTA 的表現差異，
設計具優先級的 A/B 測試，說明樣本數、風險管理與執行檢查清單。以繁體中文回答。`,
	Prompt: `測試目標：「{{objective}}」
請設計完整的 A/B 測試計畫，包含摘要、測試想法、樣本與風險管理、執行檢查清單與進階建議。`,
	Tools: []string{"compute_baseline_metrics", "detect_test_opportunities", "load_knowledge_examples"},
	Prepare: func(p *ABTestParams, _ *tools.Settings) {
		if p.Objective == "" {
			p.Objective = "提升購買轉換率"
		}
	},
}

type MVTParams struct {
	Variables               map[string][]string `json:"variables" validate:"required,min=1,max=5,dive,keys,required,endkeys,min=2"`
	TestObjective           string              `json:"test_objective" validate:"required"`
	BaselineRate            float64             `json:"baseline_rate" validate:"gt=0,lt=1"`
	MinimumDetectableEffect float64             `json:"minimum_detectable_effect" validate:"gt=0,lte=1"`
	ExpectedDailyTraffic    int                 `json:"expected_daily_traffic" validate:"gte=1"`
	LaunchCalendar          []string            `json:"launch_calendar,omitempty"`
	DesignTemplate          map[string]string   `json:"design_template,omitempty"`
}

type FactorLevel struct {
	Factor    string   `json:"factor"`
	Levels    []string `json:"levels" validate:"min=1"`
	Rationale string   `json:"rationale"`
}

type MVTPlan struct {
	Hypothesis       string        `json:"hypothesis"`
	Factors          []FactorLevel `json:"factors" validate:"min=1,dive"`
	PrimaryMetric    string        `json:"primary_metric"`
	InteractionFocus []string      `json:"interaction_focus"`
	RequiredRuns     int           `json:"required_runs" validate:"gte=1" jsonschema:"minimum=1"`
	PhasedRollout    []string      `json:"phased_rollout"`
}

type MVTResult struct {
	Plan               MVTPlan  `json:"plan"`
	DataCollectionPlan []string `json:"data_collection_plan"`
	AnalysisFramework  []string `json:"analysis_framework"`
	RiskControls       []string `json:"risk_controls"`
	Stakeholders       []string `json:"stakeholders"`
}

var MVTDesign = &Definition[MVTParams, MVTResult]{
	AgentName: "mvt_design",
	Summary:   "Plans a multivariate test: factors, runs, sample size and rollout.",
	Tier:      Quality,
	System: `你是多變量測試（MVT）設計專家。用工具取得變因組合、Bonferroni 校正後的樣本數估算、帳戶數據、
上線時程限制與設計模板，規劃完整的實驗。required_runs 必須等於實際要執行的組合數。以繁體中文回答。`,
	Prompt: `測試目標：{{test_objective}}
變因：{{variables}}
基準轉換率：{{baseline_rate}}，最小可偵測效果：{{minimum_detectable_effect}}，預估每日流量：{{expected_daily_traffic}}
請產出實驗計畫、資料蒐集、分析方法、風險控管與利害關係人。`,
	Tools: []string{"variable_blueprint", "sample_estimation", "dataset_insights", "launch_constraints", "design_templates"},
	Prepare: func(p *MVTParams, s *tools.Settings) {
		s.Experiment = tools.Experiment{
			Variables:               p.Variables,
			Objective:               p.TestObjective,
			BaselineRate:            p.BaselineRate,
			MinimumDetectableEffect: p.MinimumDetectableEffect,
			ExpectedDailyTraffic:    p.ExpectedDailyTraffic,
			LaunchCalendar:          p.LaunchCalendar,
			DesignTemplate:          p.DesignTemplate,
		}
	},
	Validate: func(p MVTParams) error {
		_, err := tools.SampleSizePerVariant(tools.TotalCombinations(p.Variables), p.BaselineRate, p.MinimumDetectableEffect)
		return err
	},
	Warn: func(p MVTParams) []string {
		var w []string
		combos := tools.TotalCombinations(p.Variables)
		if combos > 20 {
			w = append(w, "組合數超過 20，建議減少變因或改用分階段測試")
		}
		perVariant, err := tools.SampleSizePerVariant(combos, p.BaselineRate, p.MinimumDetectableEffect)
		if err != nil {
			return w
		}
		if perVariant*combos/p.ExpectedDailyTraffic > 60 {
			w = append(w, "依目前流量估計需要超過 60 天才能達到樣本數")
		}
		return w
	},
}

type StrategyParams struct {
	PlanningHorizon string   `json:"planning_horizon" validate:"required" jsonschema_description:"例如 2025 Q1"`
	TotalBudget     float64  `json:"total_budget" validate:"gt=0"`
	BusinessGoals   []string `json:"business_goals" validate:"min=1,dive,required"`
	MarketForecast  string   `json:"market_forecast,omitempty"`
	Constraints     []string `json:"constraints,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type StrategicPillar struct {
	Name          string   `json:"name"`
	Objective     string   `json:"objective"`
	KeyResults    []string `json:"key_results"`
	TacticalMoves []string `json:"tactical_moves"`
}

type StrategyResult struct {
	Horizon          string             `json:"horizon"`
	StrategicPillars []StrategicPillar  `json:"strategic_pillars" validate:"min=1,dive"`
	BudgetAllocation map[string]float64 `json:"budget_allocation" validate:"dive,gte=0"`
	AudienceStrategy []string           `json:"audience_strategy"`
	CreativeStrategy []string           `json:"creative_strategy"`
	MeasurementPlan  []string           `json:"measurement_plan"`
	ExecutiveSummary string             `json:"executive_summary"`
}

var Strategy = &Definition[StrategyParams, StrategyResult]{
	AgentName: "strategy",
	Summary:   "Builds a horizon marketing strategy with pillars and a budget split.",
	Tier:      Quality,
	System: `你是{{brand_name}}的行銷策略長。用工具取得帳戶快照、重點廣告、受眾分布、商業目標與市場訊號，
規劃策略主軸、預算分配（總和不超過總預算）、受眾與創意策略以及衡量計畫。以繁體中文回答。`,
	Prompt: `規劃期間：{{planning_horizon}}
總預算：{{total_budget}}
商業目標：{{business_goals}}
市場預測：{{market_forecast}}
限制：{{constraints}}
備註：{{notes}}`,
	Tools: []string{"account_snapshot", "campaign_highlights", "audience_breakdown", "goal_context", "market_signals"},
	Prepare: func(p *StrategyParams, s *tools.Settings) {
		s.Planning = tools.Planning{
			Horizon:        p.PlanningHorizon,
			TotalBudget:    p.TotalBudget,
			BusinessGoals:  p.BusinessGoals,
			MarketForecast: p.MarketForecast,
			Constraints:    p.Constraints,
			Notes:          p.Notes,
		}
	},
}

type CompetitorParams struct {
	CompetitorAds  []tools.CompetitorAd `json:"competitor_ads,omitempty" validate:"max=50"`
	CompetitorURLs []string             `json:"competitor_urls,omitempty" validate:"max=5,dive,http_url"`
}

type DifferentiationIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type ActionRecommendation struct {
	Priority       string `json:"priority"`
	Action         string `json:"action"`
	ExpectedImpact string `json:"expected_impact"`
}

type CompetitorSample struct {
	Brand       string `json:"brand"`
	Headline    string `json:"headline"`
	Body        string `json:"body"`
	StartTime   string `json:"start_time,omitempty"`
	Impressions string `json:"impressions,omitempty"`
	Spend       string `json:"spend,omitempty"`
}

type CompetitorResult struct {
	Overview             string                 `json:"overview"`
	CompetitorStrengths  []string               `json:"competitor_strengths"`
	OurDifferentiators   []string               `json:"our_differentiators"`
	DifferentiationIdeas []DifferentiationIdea  `json:"differentiation_ideas"`
	AvoidStrategies      []string               `json:"avoid_strategies"`
	MarketInsights       []string               `json:"market_insights"`
	ActionPlan           []ActionRecommendation `json:"action_plan"`
	CompetitorSamples    []CompetitorSample     `json:"competitor_samples"`
}

var CompetitorAnalysis = &Definition[CompetitorParams, CompetitorResult]{
	AgentName:      "competitor_analysis",
	Summary:        "Compares our ads with competitor ads and landing pages to find differentiation.",
	Tier:           Balanced,
	KnowledgeQuery: "競品 分析 差異化",
	System: `你是{{brand_name}}的競品分析師。用工具整理我方廣告表現、競品廣告文案與競品網頁重點，
找出競品優勢、我方差異化、可執行的差異化想法與應避免的策略。以繁體中文回答。`,
	Prompt: `請分析競品廣告與網站，提出差異化與行動計畫，並附上具代表性的競品廣告樣本。`,
	Tools: []string{"summarize_our_ads", "summarize_competitors", "scan_competitor_pages", "load_knowledge_examples"},
	Prepare: func(p *CompetitorParams, s *tools.Settings) {
		s.CompetitorAds = p.CompetitorAds
		s.CompetitorURLs = p.CompetitorURLs
	},
	Warn: func(p CompetitorParams) []string {
		if len(p.CompetitorAds) == 0 && len(p.CompetitorURLs) == 0 {
			return []string{"未提供競品廣告或網址，分析將只依我方數據與知識庫"}
		}
		return nil
	},
}
