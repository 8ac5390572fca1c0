package logging

// Convenience functions for quick logging without getting a logger first.
// These are no-ops if the category is disabled.

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootError logs error to the boot category.
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// Workflow logs to the workflow category.
func Workflow(format string, args ...interface{}) {
	Get(CategoryWorkflow).Info(format, args...)
}

// WorkflowDebug logs debug to the workflow category.
func WorkflowDebug(format string, args ...interface{}) {
	Get(CategoryWorkflow).Debug(format, args...)
}

// WorkflowWarn logs warning to the workflow category.
func WorkflowWarn(format string, args ...interface{}) {
	Get(CategoryWorkflow).Warn(format, args...)
}

// WorkflowError logs error to the workflow category.
func WorkflowError(format string, args ...interface{}) {
	Get(CategoryWorkflow).Error(format, args...)
}

// Kpi logs to the kpi category.
func Kpi(format string, args ...interface{}) {
	Get(CategoryKpi).Info(format, args...)
}

// KpiWarn logs warning to the kpi category.
func KpiWarn(format string, args ...interface{}) {
	Get(CategoryKpi).Warn(format, args...)
}

// KpiError logs error to the kpi category.
func KpiError(format string, args ...interface{}) {
	Get(CategoryKpi).Error(format, args...)
}

// Tasks logs to the tasks category.
func Tasks(format string, args ...interface{}) {
	Get(CategoryTasks).Info(format, args...)
}

// TasksDebug logs debug to the tasks category.
func TasksDebug(format string, args ...interface{}) {
	Get(CategoryTasks).Debug(format, args...)
}

// TasksError logs error to the tasks category.
func TasksError(format string, args ...interface{}) {
	Get(CategoryTasks).Error(format, args...)
}

// Assign logs to the assign category.
func Assign(format string, args ...interface{}) {
	Get(CategoryAssign).Info(format, args...)
}

// AssignDebug logs debug to the assign category.
func AssignDebug(format string, args ...interface{}) {
	Get(CategoryAssign).Debug(format, args...)
}

// AssignError logs error to the assign category.
func AssignError(format string, args ...interface{}) {
	Get(CategoryAssign).Error(format, args...)
}

// API logs to the api category.
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category.
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs error to the api category.
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Store logs to the store category.
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreError logs error to the store category.
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Config logs to the config category.
func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}
