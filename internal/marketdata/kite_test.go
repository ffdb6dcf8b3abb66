package marketdata

import (
	"context"
	"testing"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"optionscope/pkg/utils"
)

func TestSessionErrorsAreNotRetried(t *testing.T) {
	tokenErr := kiteconnect.Error{ErrorType: kiteconnect.TokenError, Message: "token expired"}

	calls := 0
	_, err := utils.FetchWithRetry(context.Background(), utils.DefaultFetchConfig(), func() (int, error) {
		calls++
		return 0, permanentIfSessionErr(tokenErr)
	})
	if err == nil {
		t.Fatal("expected the token error to surface")
	}
	if calls != 1 {
		t.Errorf("token error attempted %d times, want a single attempt", calls)
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	generalErr := kiteconnect.Error{ErrorType: kiteconnect.GeneralError, Message: "gateway timeout"}

	calls := 0
	_, err := utils.FetchWithRetry(context.Background(), utils.DefaultFetchConfig(), func() (int, error) {
		calls++
		return 0, permanentIfSessionErr(generalErr)
	})
	if err == nil {
		t.Fatal("expected the fetch to exhaust its retries")
	}
	if calls != 3 {
		t.Errorf("transient error attempted %d times, want the full retry budget of 3", calls)
	}
}

func TestPermanentIfSessionErrNil(t *testing.T) {
	if err := permanentIfSessionErr(nil); err != nil {
		t.Errorf("nil error became %v", err)
	}
}
