package tools

// Catalog lists every inbuilt tool. Names are unique and stable; agents refer
// to tools by these names.
func Catalog() []Definition {
	return []Definition{
		// account
		{"get_all_campaigns_summary", "Account totals, average and median ROAS, and the data date range.", GetAllCampaignsSummary},
		{"get_campaign_performance", "Per-campaign spend, ROAS, purchases, CTR, CPA and conversion rate, largest spend first.", GetCampaignPerformance},
		{"identify_low_roas_campaigns", "Campaigns below the target ROAS that spent at least the minimum campaign spend.", IdentifyLowROASCampaigns},
		{"calculate_risk_amount", "Spend below the target ROAS and the revenue it would have earned at target.", CalculateRiskAmount},
		{"compute_account_snapshot", "Account summary with active objectives and best and worst campaigns.", ComputeAccountSnapshot},
		{"identify_urgent", "Campaigns under 60% of target ROAS or 20% above the CPA ceiling.", IdentifyUrgent},
		{"discover_opportunities", "On-target campaigns spending less than five days of the minimum daily budget.", DiscoverOpportunities},
		{"analyze_budget", "Spend share of the fifteen largest campaigns.", AnalyzeBudget},
		{"query_campaign", "Look up campaigns by full or partial name.", QueryCampaign},
		{"get_top_campaigns", "Best campaigns by ROAS.", GetTopCampaigns},
		{"get_overall_summary", "Whole-account performance summary.", GetOverallSummary},
		{"get_current_time", "Current date and time of this run.", GetCurrentTime},

		// knowledge
		{"load_knowledge_examples", "Similar past cases from the knowledge base, when available.", LoadKnowledgeExamples},
		{"search_similar_ads", "Search the knowledge base of high-performing ads.", SearchSimilarAds},

		// copywriting
		{"get_top_performing_copy", "Best ads with ROAS above 3 and their recurring themes.", GetTopPerformingCopy},
		{"get_audience_insights", "Performance by age and gender audience.", GetAudienceInsights},
		{"get_brand_voice_guidelines", "Brand tone, values and phrases to avoid.", GetBrandVoiceGuidelines},
		{"analyze_competitor_messaging", "Brand positioning, differentiation and similar high-performing ads.", AnalyzeCompetitorMessaging},
		{"get_seasonal_themes", "Marketing themes and emotions for the current season.", GetSeasonalThemes},

		// image prompts
		{"get_brand_visual_guidelines", "Brand colors, style keywords and visuals to avoid.", GetBrandVisualGuidelines},
		{"get_top_performing_image_features", "Image direction inferred from the audiences of the best ads.", GetTopPerformingImageFeatures},
		{"get_platform_specific_requirements", "Meta placement requirements for the requested image size.", GetPlatformSpecificRequirements},
		{"analyze_similar_high_performing_images", "Similar high-performing ads or general image guidance.", AnalyzeSimilarHighPerformingImages},
		{"get_style_specific_prompts", "Prompt keywords, composition, lighting and colors for the requested style.", GetStyleSpecificPrompts},

		// image analysis
		{"analyze_with_vision", "Describe the attached ad image with the vision model.", AnalyzeWithVision},
		{"get_brand_visual_standards", "Brand visual standards for scoring an image.", GetBrandVisualStandards},
		{"get_meta_ad_guidelines", "Meta ad image requirements, policies and best practices.", GetMetaAdGuidelines},
		{"get_high_performing_image_examples", "Campaigns with the best ROAS and common image success factors.", GetHighPerformingImageExamples},

		// creative
		{"analyze_creative_performance", "ROAS distribution of ads relative to the account.", AnalyzeCreativePerformance},
		{"get_successful_creative_patterns", "Objectives, averages and keywords shared by the ten best ads.", GetSuccessfulCreativePatterns},
		{"identify_underperforming_elements", "Ads under target ROAS and their common issues.", IdentifyUnderperformingElements},
		{"get_optimization_examples", "Similar optimization cases or creative testing practices.", GetOptimizationExamples},
		{"calculate_optimization_potential", "Revenue gap if all spend reached the target ROAS.", CalculateOptimizationPotential},
		{"summarize_creatives", "Performance per headline.", SummarizeCreatives},
		{"fetch_segment_performance", "The ten largest segments by spend for a column.", FetchSegmentPerformance},

		// funnel
		{"compute_funnel_stages", "Stage counts and step conversion from reach to purchase.", ComputeFunnelStages},
		{"analyze_funnel_segments", "Best and worst funnel step for the main values of each segment column.", AnalyzeFunnelSegments},

		// budget
		{"compute_budget_summary", "Total spend, revenue, ROAS and profit.", ComputeBudgetSummary},
		{"group_spend_by_campaign", "Spend, ROAS and purchases per campaign.", GroupSpendByCampaign},
		{"detect_increase_targets", "On-target campaigns whose average spend is below the increase threshold.", DetectIncreaseTargets},
		{"detect_decrease_targets", "Campaigns at or above the decrease threshold under 60% of target ROAS.", DetectDecreaseTargets},

		// quality
		{"compute_quality_distribution", "Counts of quality, engagement and conversion ranking labels.", ComputeQualityDistribution},
		{"compute_score_stats", "Mean, median, max and min of ranking scores.", ComputeScoreStats},
		{"detect_low_quality_ads", "Up to twenty ads ranked below average for quality.", DetectLowQualityAds},

		// audience
		{"summarize_core_audiences", "Age, gender and objective combinations ranked by ROAS.", SummarizeCoreAudiences},
		{"fetch_audience_distribution", "Row counts by objective, region and device.", FetchAudienceDistribution},

		// report
		{"compute_period_metrics", "Metrics for the current period and, when set, the previous one.", ComputePeriodMetrics},
		{"campaign_performance", "Best and worst campaigns of the current period.", CampaignPerformance},
		{"detect_events", "New campaigns and daily spend anomalies in the current period.", DetectEvents},

		// experiments
		{"compute_baseline_metrics", "Account baseline for test measurement.", ComputeBaselineMetrics},
		{"detect_test_opportunities", "Headline and call-to-action contrasts worth testing.", DetectTestOpportunities},
		{"variable_blueprint", "Test variables, combination count and complexity.", VariableBlueprintTool},
		{"sample_estimation", "Sample size per variant, total sample and estimated days.", SampleEstimation},
		{"dataset_insights", "Best campaigns, median ROAS and CTR, and data span.", DatasetInsightsTool},
		{"launch_constraints", "Dates the test must work around.", LaunchConstraintsTool},
		{"design_templates", "Preferred design template for the test plan.", DesignTemplates},

		// competitors
		{"summarize_our_ads", "Our average ROAS and CTR with the most used headlines and objectives.", SummarizeOurAds},
		{"summarize_competitors", "Supplied competitor ads.", SummarizeCompetitors},
		{"scan_competitor_pages", "Titles, headings and calls to action of competitor landing pages.", ScanCompetitorPages},

		// strategy
		{"account_snapshot", "Totals and date span for planning.", AccountSnapshotTool},
		{"campaign_highlights", "The five best ads by ROAS.", CampaignHighlights},
		{"audience_breakdown", "Performance by audience and region.", AudienceBreakdownTool},
		{"goal_context", "Business goals, horizon, budget and constraints.", GoalContextTool},
		{"market_signals", "Market forecast, notes and season.", MarketSignalsTool},
	}
}
