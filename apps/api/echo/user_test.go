package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/testutil"
)

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.env.Repos.Users, "Gone", "gone", "gone@test.cd", testPassword, nil, false)

	login := func(uname, pwd string) []byte {
		return marshallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	f.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: login("teacher", "nope"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("ghost", testPassword),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: login("gone", testPassword),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
	})

	for _, uname := range []string{"teacher", "  TEACHER@test.cd "} {
		t.Run("success "+uname, func(t *testing.T) {
			var resp LoginResponse
			decode(t, f.do(http.MethodPost, "/v1/users/login", "", login(uname, testPassword)), http.StatusOK, &resp)
			assert.NotEmpty(t, resp.Token)

			// the token opens authed endpoints
			rec := f.do(http.MethodGet, "/v1/users/"+f.teacher.ID, resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	f := setup(t)

	f.run(t, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: f.teacherToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	})

	t.Run("admin", func(t *testing.T) {
		var users []user.User
		decode(t, f.do(http.MethodGet, "/v1/users", f.adminToken), http.StatusOK, &users)
		assert.Len(t, users, 4)
	})

	t.Run("search", func(t *testing.T) {
		var users []user.User
		decode(t, f.do(http.MethodGet, "/v1/users?search=teach", f.adminToken), http.StatusOK, &users)
		require.Len(t, users, 1)
		assert.Equal(t, f.teacher.ID, users[0].ID)
	})

	t.Run("roles", func(t *testing.T) {
		var roles []user.Role
		decode(t, f.do(http.MethodGet, "/v1/users/roles", f.adminToken), http.StatusOK, &roles)
		assert.Equal(t, user.Roles, roles)
	})
}

func Test_userApi_detail(t *testing.T) {
	f := setup(t)

	f.run(t, []httpTest{
		{name: "self", path: "/v1/users/" + f.teacher.ID, token: f.teacherToken, wantCode: http.StatusOK},
		{
			name: "someone else", path: "/v1/users/" + f.admin.ID, token: f.teacherToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin sees anyone", path: "/v1/users/" + f.teacher.ID, token: f.adminToken, wantCode: http.StatusOK},
		{name: "unknown", path: "/v1/users/nope", token: f.adminToken, wantCode: http.StatusNotFound},
		{
			name: "teacher cannot change roles", method: http.MethodPut, path: "/v1/users/" + f.teacher.ID,
			token: f.teacherToken, body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "no self delete", method: http.MethodDelete, path: "/v1/users/" + f.admin.ID,
			token: f.adminToken, wantCode: http.StatusForbidden,
		},
		{
			name: "admin deletes", method: http.MethodDelete, path: "/v1/users/" + f.nobody.ID,
			token: f.adminToken, wantCode: http.StatusNoContent,
		},
	})

	t.Run("update name", func(t *testing.T) {
		var usr user.User
		rec := f.do(http.MethodPut, "/v1/users/"+f.teacher.ID, f.teacherToken, []byte(`{"name": "  Ms Teacher "}`))
		decode(t, rec, http.StatusOK, &usr)
		assert.Equal(t, "Ms Teacher", usr.Name)
		assert.Equal(t, "teacher", usr.Username)
	})
}

func Test_userApi_register(t *testing.T) {
	f := setup(t)

	body := func(uname string, roles ...string) []byte {
		return marshallObj(t, user.NewUser{
			Name: "New Teacher", Username: uname, Email: uname + "@test.cd",
			Password: "pwd12345", PasswordConfirm: "pwd12345", Roles: roles,
		})
	}

	f.run(t, []httpTest{
		{
			name: "teacher forbidden", method: http.MethodPost, path: "/v1/users/register",
			token: f.teacherToken, body: body("newbie"), wantCode: http.StatusForbidden,
		},
		{
			name: "duplicate username", method: http.MethodPost, path: "/v1/users/register",
			token: f.adminToken, body: body("teacher"), wantCode: http.StatusBadRequest,
		},
		{
			name: "role above own", method: http.MethodPost, path: "/v1/users/register",
			token: f.adminToken, body: body("boss", user.RoleAdminPrincipal), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("created", func(t *testing.T) {
		var usr user.User
		decode(t, f.do(http.MethodPost, "/v1/users/register", f.adminToken, body("newbie", user.RoleTeacher)), http.StatusCreated, &usr)
		assert.Equal(t, "newbie", usr.Username)
		assert.True(t, usr.IsActive)
		assert.Equal(t, []string{user.RoleTeacher}, usr.Roles)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	f := setup(t)

	f.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized},
	})

	var resp LoginResponse
	decode(t, f.do(http.MethodPost, "/v1/users/token-refresh", f.teacherToken), http.StatusOK, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_resetPassword(t *testing.T) {
	f := setup(t)

	for _, email := range []string{"teacher@test.cd", "ghost@test.cd"} {
		t.Run(email, func(t *testing.T) {
			var resp SuccessResponse
			rec := f.do(http.MethodPost, "/v1/users/password-reset", "", marshallObj(t, PasswordResetRequest{Email: email}))
			decode(t, rec, http.StatusOK, &resp)
			assert.NotEmpty(t, resp.Success)
		})
	}

	t.Run("bad token", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/users/password-reset-confirm", "", marshallObj(t, user.ResetUserPassword{
			Token: "nope", UID: "nope", Password: "pwd12345", PasswordConfirm: "pwd12345",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
