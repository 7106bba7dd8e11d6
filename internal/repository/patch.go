package repository

// ProfilePatch is an explicit optional-field update for a profile. A nil
// field means "leave unchanged"; a non-nil field is written as-is, so an
// empty string clears the column.
type ProfilePatch struct {
	Nickname   *string
	FirstName  *string
	SecondName *string
	Phone      *string
	Email      *string
	TgID       *string
	TgNickname *string
	Session    *string
	Avatar     *string
}

// Updates converts the patch into the column map gorm expects.
func (p ProfilePatch) Updates() map[string]any {
	m := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			m[col] = *v
		}
	}
	set("nickname", p.Nickname)
	set("first_name", p.FirstName)
	set("second_name", p.SecondName)
	set("phone", p.Phone)
	set("email", p.Email)
	set("tg_id", p.TgID)
	set("tg_nickname", p.TgNickname)
	set("session", p.Session)
	set("avatar", p.Avatar)
	return m
}

// IsEmpty reports whether the patch carries no changes.
func (p ProfilePatch) IsEmpty() bool { return len(p.Updates()) == 0 }
