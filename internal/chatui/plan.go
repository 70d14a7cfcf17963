package chatui

import (
	"fmt"
	"path/filepath"
	"time"
)

const disclaimer = "*This travel plan was generated by AI. Please verify all information, " +
	"especially prices, operating hours, and travel requirements before your trip.*"

// FormatPlan renders an answer as the travel plan markdown document
func FormatPlan(answer, author string, generated time.Time) string {
	return fmt.Sprintf("# 🌍 AI Travel Plan\n\n"+
		"# **Generated:** %s  \n"+
		"# **Created by:** %s\n\n"+
		"---\n\n"+
		"%s\n\n"+
		"---\n\n"+
		"%s\n",
		generated.Format("2006-01-02 at 15:04"), author, answer, disclaimer)
}

// DefaultPlanPath is where /save writes when no path is given
func DefaultPlanPath(dir string, at time.Time) string {
	return filepath.Join(dir, "AI_Trip_Plan_"+at.Format("2006-01-02_15-04-05")+".md")
}
