package sqlgate

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors. Every error returned by this package wraps one of the
// three roots (ErrValidation, ErrCursor or, via ErrValidation, ErrPolicy), so
// callers can translate any of them into a client-facing 400 response with
// IsClientErr. None of them is fatal: a caller that receives one must simply
// not execute anything.
var (
	// ErrValidation is the root of all input validation failures.
	ErrValidation = errors.New("sqlgate: invalid query input")

	// ErrCursor is the root of all cursor decoding failures.
	ErrCursor = errors.New("sqlgate: invalid cursor")

	// ErrPolicy is returned when a filter is well formed but rejected by a FilterPolicy.
	ErrPolicy = fmt.Errorf("%w: filter rejected by policy", ErrValidation)

	ErrInvalidIdentifier  = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrReservedKeyword    = fmt.Errorf("%w: reserved keyword", ErrValidation)
	ErrUnknownOperator    = fmt.Errorf("%w: unknown operator", ErrValidation)
	ErrArityMismatch      = fmt.Errorf("%w: operator arity mismatch", ErrValidation)
	ErrEmptyArray         = fmt.Errorf("%w: empty array operand", ErrValidation)
	ErrTypeMismatch       = fmt.Errorf("%w: type mismatch", ErrValidation)
	ErrEmptyGroup         = fmt.Errorf("%w: empty AND/OR group", ErrValidation)
	ErrNilFilter          = fmt.Errorf("%w: nil filter expression", ErrValidation)
	ErrEmptySort          = fmt.Errorf("%w: empty sort specification", ErrValidation)
	ErrDuplicateSortField = fmt.Errorf("%w: duplicate sort field", ErrValidation)
	ErrInvalidSort        = fmt.Errorf("%w: invalid sort term", ErrValidation)
	ErrNoColumns          = fmt.Errorf("%w: no columns selected", ErrValidation)
	ErrNoValues           = fmt.Errorf("%w: no values to write", ErrValidation)
	ErrDuplicateField     = fmt.Errorf("%w: duplicate field", ErrValidation)
	ErrRowLength          = fmt.Errorf("%w: row length does not match columns", ErrValidation)
	ErrInvalidLimit       = fmt.Errorf("%w: limit must be positive", ErrValidation)
	ErrInvalidOffset      = fmt.Errorf("%w: offset must not be negative", ErrValidation)
	ErrCursorWithoutSort  = fmt.Errorf("%w: cursor requires a sort specification", ErrValidation)
	ErrOffsetWithCursor   = fmt.Errorf("%w: offset and cursor cannot be combined", ErrValidation)
	ErrUnsafeExpression   = fmt.Errorf("%w: unsafe SQL expression", ErrValidation)

	ErrFieldNotAllowed = fmt.Errorf("%w: field not allowed", ErrPolicy)
	ErrOperatorDenied  = fmt.Errorf("%w: operator denied", ErrPolicy)
	ErrNestingTooDeep  = fmt.Errorf("%w: nesting too deep", ErrPolicy)
	ErrTooManyNodes    = fmt.Errorf("%w: too many nodes", ErrPolicy)

	ErrCursorMalformed     = fmt.Errorf("%w: malformed token", ErrCursor)
	ErrCursorFieldMismatch = fmt.Errorf("%w: fields do not match sort order", ErrCursor)
	ErrCursorValues        = fmt.Errorf("%w: values do not match sort order", ErrCursor)
)

// IsValidationErr returns true if err is or wraps ErrValidation.
func IsValidationErr(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsCursorErr returns true if err is or wraps ErrCursor.
func IsCursorErr(err error) bool {
	return errors.Is(err, ErrCursor)
}

// IsPolicyErr returns true if err is or wraps ErrPolicy.
func IsPolicyErr(err error) bool {
	return errors.Is(err, ErrPolicy)
}

// IsClientErr reports whether err was caused by caller input and should be
// surfaced as a 400-class response.
func IsClientErr(err error) bool {
	return IsValidationErr(err) || IsCursorErr(err)
}

// ToStatus converts err into a gRPC status: InvalidArgument for client
// errors, Internal for anything else.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if IsClientErr(err) {
		return status.New(codes.InvalidArgument, err.Error())
	}
	return status.New(codes.Internal, err.Error())
}

// maxEchoLen bounds how much caller input is repeated back in error messages.
const maxEchoLen = 64

// quote renders caller-supplied text for an error message: escaped, and
// truncated when long.
func quote(s string) string {
	if len(s) > maxEchoLen {
		return fmt.Sprintf("%q...", s[:maxEchoLen])
	}
	return fmt.Sprintf("%q", s)
}

func quoteAll(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// InvalidIdentifierError reports a table or column name that does not match
// the identifier grammar.
type InvalidIdentifierError struct {
	Value  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %s: %s", quote(e.Value), e.Reason)
}

func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *InvalidIdentifierError) GRPCStatus() *status.Status { return invalidArgument(e) }

// ReservedKeywordError reports an identifier that is an SQL keyword.
type ReservedKeywordError struct {
	Value string
}

func (e *ReservedKeywordError) Error() string {
	return fmt.Sprintf("identifier %s is a reserved keyword", quote(e.Value))
}

func (e *ReservedKeywordError) Unwrap() error { return ErrReservedKeyword }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *ReservedKeywordError) GRPCStatus() *status.Status { return invalidArgument(e) }

// UnknownOperatorError reports an operator name that is not recognised.
// Suggestion holds the closest known operator, or is empty.
type UnknownOperatorError struct {
	Value      string
	Suggestion string
}

func (e *UnknownOperatorError) Error() string {
	msg := fmt.Sprintf("unknown operator %s", quote(e.Value))
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *UnknownOperatorError) Unwrap() error { return ErrUnknownOperator }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *UnknownOperatorError) GRPCStatus() *status.Status { return invalidArgument(e) }

// ArityMismatchError reports an operand whose shape does not fit the operator.
type ArityMismatchError struct {
	Operator Operator
	Expected string
	Got      string
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("operator %s expects %s, got %s", e.Operator, e.Expected, e.Got)
}

func (e *ArityMismatchError) Unwrap() error { return ErrArityMismatch }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *ArityMismatchError) GRPCStatus() *status.Status { return invalidArgument(e) }

// EmptyArrayError reports an empty array operand for In or NotIn.
type EmptyArrayError struct {
	Operator Operator
}

func (e *EmptyArrayError) Error() string {
	return fmt.Sprintf("operator %s requires a non-empty array", e.Operator)
}

func (e *EmptyArrayError) Unwrap() error { return ErrEmptyArray }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *EmptyArrayError) GRPCStatus() *status.Status { return invalidArgument(e) }

// TypeMismatchError reports an operand of the wrong type for a field's operator.
type TypeMismatchError struct {
	Field    string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %s expects %s, got %s", quote(e.Field), e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *TypeMismatchError) GRPCStatus() *status.Status { return invalidArgument(e) }

// FieldNotAllowedError reports a filter or sort field outside the allow-list.
type FieldNotAllowedError struct {
	Field   string
	Allowed []string
}

func (e *FieldNotAllowedError) Error() string {
	return fmt.Sprintf("field %s is not allowed, allowed fields: %s", quote(e.Field), strings.Join(e.Allowed, ", "))
}

func (e *FieldNotAllowedError) Unwrap() error { return ErrFieldNotAllowed }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *FieldNotAllowedError) GRPCStatus() *status.Status { return invalidArgument(e) }

// OperatorDeniedError reports an operator the policy forbids.
type OperatorDeniedError struct {
	Operator Operator
	Field    string
}

func (e *OperatorDeniedError) Error() string {
	return fmt.Sprintf("operator %s is denied for field %s", e.Operator, quote(e.Field))
}

func (e *OperatorDeniedError) Unwrap() error { return ErrOperatorDenied }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *OperatorDeniedError) GRPCStatus() *status.Status { return invalidArgument(e) }

// NestingTooDeepError reports a filter tree deeper than the policy allows.
type NestingTooDeepError struct {
	Max    int
	Actual int
}

func (e *NestingTooDeepError) Error() string {
	return fmt.Sprintf("filter nesting depth %d exceeds maximum %d", e.Actual, e.Max)
}

func (e *NestingTooDeepError) Unwrap() error { return ErrNestingTooDeep }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *NestingTooDeepError) GRPCStatus() *status.Status { return invalidArgument(e) }

// TooManyNodesError reports a filter with more nodes than the policy allows.
type TooManyNodesError struct {
	Max int
}

func (e *TooManyNodesError) Error() string {
	return fmt.Sprintf("filter contains too many nodes (max %d)", e.Max)
}

func (e *TooManyNodesError) Unwrap() error { return ErrTooManyNodes }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *TooManyNodesError) GRPCStatus() *status.Status { return invalidArgument(e) }

// CursorMalformedError reports a token that cannot be decoded.
type CursorMalformedError struct {
	Reason string
	Err    error
}

func (e *CursorMalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed cursor: %s: %v", e.Reason, e.Err)
	}
	return "malformed cursor: " + e.Reason
}

// Is matches ErrCursorMalformed in addition to the wrapped cause.
func (e *CursorMalformedError) Is(target error) bool {
	return target == ErrCursorMalformed || target == ErrCursor
}

func (e *CursorMalformedError) Unwrap() error { return e.Err }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *CursorMalformedError) GRPCStatus() *status.Status { return invalidArgument(e) }

// CursorFieldMismatchError reports a cursor decoded against a sort order it
// was not produced for.
type CursorFieldMismatchError struct {
	Expected []string
	Got      []string
}

func (e *CursorFieldMismatchError) Error() string {
	return fmt.Sprintf("cursor fields %s do not match sort fields %s", quoteAll(e.Got), quoteAll(e.Expected))
}

func (e *CursorFieldMismatchError) Unwrap() error { return ErrCursorFieldMismatch }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *CursorFieldMismatchError) GRPCStatus() *status.Status { return invalidArgument(e) }

func invalidArgument(err error) *status.Status {
	return status.New(codes.InvalidArgument, err.Error())
}
