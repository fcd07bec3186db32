package dclist

import (
	"errors"
	"testing"
)

func Test_Errors_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "http error with code",
			err:  &HTTPError{Text: "nope", Code: "FORBIDDEN", StatusCode: 403},
			want: "dclist: nope (status code: FORBIDDEN)",
		},
		{
			name: "http error with status only",
			err:  &HTTPError{Text: "Bad Gateway", StatusCode: 502},
			want: "dclist: Bad Gateway (status code: HTTP 502)",
		},
		{
			name: "http error bare",
			err:  &HTTPError{Text: "response is missing field getBot"},
			want: "dclist: response is missing field getBot",
		},
		{
			name: "unauthorized",
			err:  &UnauthorizedError{HTTPError{Text: "invalid token", Code: CodeUnauthorized}},
			want: "dclist: unauthorized: invalid token",
		},
		{
			name: "client error with code",
			err:  &ClientError{Text: "bot not found", Code: CodeBadUserInput},
			want: "dclist: bot not found (BAD_USER_INPUT)",
		},
		{
			name: "client error local",
			err:  &ClientError{Text: "queries: missing variable"},
			want: "dclist: queries: missing variable",
		},
		{
			name: "no result",
			err:  &NoResultError{Reason: ReasonRateLimited, Text: "slow down"},
			want: "dclist: no result (rate_limited): slow down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_Errors_Matching(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantDCList   bool
		wantNoResult bool
	}{
		{name: "http", err: &HTTPError{}, wantDCList: true},
		{name: "unauthorized", err: &UnauthorizedError{}, wantDCList: true},
		{name: "client", err: &ClientError{}, wantDCList: true},
		{name: "no token", err: ErrNoToken, wantDCList: true},
		{name: "no host", err: ErrNoHost, wantDCList: true},
		{name: "no result", err: &NoResultError{}, wantNoResult: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, ErrDCList); got != tt.wantDCList {
				t.Errorf("errors.Is(ErrDCList) = %v, want %v", got, tt.wantDCList)
			}
			if got := errors.Is(tt.err, ErrNoResult); got != tt.wantNoResult {
				t.Errorf("errors.Is(ErrNoResult) = %v, want %v", got, tt.wantNoResult)
			}
		})
	}
}

func Test_UnauthorizedError_AsHTTPError(t *testing.T) {
	var err error = &UnauthorizedError{HTTPError{Text: "x", StatusCode: 401}}

	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatal("errors.As(*HTTPError) = false, want true")
	}
	if he.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", he.StatusCode)
	}
}
