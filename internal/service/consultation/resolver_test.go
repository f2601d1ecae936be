package consultation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"teleconsult-backend/internal/domain"
)

func TestResolve_AlwaysIncludesOwner(t *testing.T) {
	c := &domain.Consultation{ID: uuid.New(), Owner: uuid.New(), Status: domain.ConsultationClosed}
	audience := Resolve(c)
	assert.Contains(t, audience, c.Owner)
}

func TestResolve_QueueOnlyWhilePending(t *testing.T) {
	owner := uuid.New()
	queue := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: owner, Queue: &queue,
		Status: domain.ConsultationPending,
	}
	assert.Contains(t, Resolve(c), queue)

	c.Status = domain.ConsultationActive
	assert.NotContains(t, Resolve(c), queue)
}

func TestResolve_DoctorSkippedWhenSameAsAcceptedBy(t *testing.T) {
	owner := uuid.New()
	doctor := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: owner,
		Doctor: &doctor, AcceptedBy: &doctor,
		Status: domain.ConsultationActive,
	}

	audience := Resolve(c)
	count := 0
	for _, id := range audience {
		if id == doctor {
			count++
		}
	}
	assert.Equal(t, 1, count, "doctor should appear once, via acceptedBy")
}

func TestResolve_DoctorIncludedWhenDifferentResponderAccepted(t *testing.T) {
	doctor := uuid.New()
	acceptedBy := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: uuid.New(),
		Doctor: &doctor, AcceptedBy: &acceptedBy,
		Status: domain.ConsultationActive,
	}

	audience := Resolve(c)
	assert.Contains(t, audience, doctor)
	assert.Contains(t, audience, acceptedBy)
}

func TestResolve_IncludesAuxiliaryRoles(t *testing.T) {
	translator := uuid.New()
	guest := uuid.New()
	expert1 := uuid.New()
	expert2 := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: uuid.New(),
		Translator: &translator, Guest: &guest,
		Experts: []uuid.UUID{expert1, expert2},
		Status:  domain.ConsultationActive,
	}

	audience := Resolve(c)
	assert.Contains(t, audience, translator)
	assert.Contains(t, audience, guest)
	assert.Contains(t, audience, expert1)
	assert.Contains(t, audience, expert2)
}

func TestRoleOf(t *testing.T) {
	owner := uuid.New()
	acceptedBy := uuid.New()
	translator := uuid.New()
	expert := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: owner,
		AcceptedBy: &acceptedBy, Translator: &translator,
		Experts: []uuid.UUID{expert},
	}

	role, ok := RoleOf(c, owner)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleRequester, role)

	role, ok = RoleOf(c, acceptedBy)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleResponder, role)

	role, ok = RoleOf(c, translator)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleTranslator, role)

	role, ok = RoleOf(c, expert)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleExpert, role)

	_, ok = RoleOf(c, uuid.New())
	assert.False(t, ok)
}

func TestIsMember_DoctorAddressedViaQueueNotMemberUntilAccept(t *testing.T) {
	doctor := uuid.New()
	queue := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: uuid.New(),
		Doctor: &doctor, Queue: &queue,
		Status: domain.ConsultationActive,
	}
	user := &domain.User{ID: doctor, Role: domain.RoleResponder}

	assert.False(t, IsMember(c, user))

	c.AcceptedBy = &doctor
	assert.True(t, IsMember(c, user))
}

func TestIsMember_QueuePrivilegesSeePendingOnly(t *testing.T) {
	queue := uuid.New()
	c := &domain.Consultation{
		ID: uuid.New(), Owner: uuid.New(), Queue: &queue,
		Status: domain.ConsultationPending,
	}
	user := &domain.User{
		ID: uuid.New(), Role: domain.RoleResponder,
		AllowedQueues: []uuid.UUID{queue},
	}

	assert.True(t, IsMember(c, user))

	c.Status = domain.ConsultationActive
	assert.False(t, IsMember(c, user))

	c.Status = domain.ConsultationPending
	user.AllowedQueues = nil
	assert.False(t, IsMember(c, user))

	user.ViewAllQueues = true
	assert.True(t, IsMember(c, user))
}
