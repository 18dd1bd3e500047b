package sqlstore

import "fmt"

type queries struct {
	userByEmail      string
	userByID         string
	userExists       string
	insertUser       string
	markVerified     string
	credentialAcct   string
	accountByProv    string
	insertAccount    string
	updatePassword   string
	organizationByID string
	isMember         string
	findRole         string
}

func buildQueries(s Schema) queries {
	u, a, o, m, r := s.Users, s.Accounts, s.Organizations, s.Members, s.Roles

	userCols := fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		u.ID, u.Email, u.Name, u.EmailVerified, u.Image, u.OrganizationID, u.CreatedAt, u.UpdatedAt)
	acctCols := fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		a.ID, a.UserID, a.ProviderID, a.AccountID, a.Password, a.AccessToken, a.RefreshToken, a.IDToken, a.CreatedAt, a.UpdatedAt)

	return queries{
		userByEmail: fmt.Sprintf("SELECT %s FROM %s WHERE lower(%s) = lower(?) LIMIT 1",
			userCols, u.Table, u.Email),
		userByID: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			userCols, u.Table, u.ID),
		userExists: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE lower(%s) = lower(?))",
			u.Table, u.Email),
		insertUser: fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?)",
			u.Table, u.Email, u.Name, u.EmailVerified, u.Image, u.OrganizationID, u.CreatedAt, u.UpdatedAt),
		markVerified: fmt.Sprintf("UPDATE %s SET %s = 1, %s = ? WHERE %s = ?",
			u.Table, u.EmailVerified, u.UpdatedAt, u.ID),
		credentialAcct: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ? LIMIT 1",
			acctCols, a.Table, a.UserID, a.ProviderID),
		accountByProv: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ? LIMIT 1",
			acctCols, a.Table, a.ProviderID, a.AccountID),
		insertAccount: fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			a.Table, a.UserID, a.ProviderID, a.AccountID, a.Password, a.AccessToken, a.RefreshToken, a.IDToken, a.CreatedAt, a.UpdatedAt),
		updatePassword: fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ? AND %s = ?",
			a.Table, a.Password, a.UpdatedAt, a.UserID, a.ProviderID),
		organizationByID: fmt.Sprintf("SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = ?",
			o.ID, o.Name, o.Slug, o.Logo, o.CreatedAt, o.Table, o.ID),
		isMember: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = ? AND %s = ?) OR EXISTS (SELECT 1 FROM %s WHERE %s = ? AND %s = ?)",
			m.Table, m.OrganizationID, m.UserID, u.Table, u.ID, u.OrganizationID),
		findRole: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
			r.Role, r.Table, r.UserID),
	}
}
