// Package retry provides bounded retry with exponential backoff.
//
// Two callers use it: database connectors retry transient connection
// failures, and the object store uploader polls for object visibility
// after a PUT instead of sleeping a fixed duration.
//
// # Example Usage
//
//	classifier := retry.NewPostgreSQLErrorClassifier()
//	strategy := retry.NewExponentialBackoff(3)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return connectToDatabase(ctx)
//	})
//
// # Error Classification
//
// The ErrorClassifier interface decides which errors are transient. Use
// PostgreSQLErrorClassifier for connections, or ClassifierFunc for
// anything else.
package retry
